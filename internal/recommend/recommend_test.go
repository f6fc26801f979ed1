package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tripmate/internal/service"
)

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

const sampleReply = "Sure! Here are some places:\n```json\n" +
	`[{"place":"Lonavala","description":"Hill station","transportation":"Bus from Pune"},` +
	`{"place":"Pavana Lake","description":"Lake","transportation":"Drive"}]` +
	"\n```\nEnjoy [your] trip!"

func TestBudget_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Budget
		missing bool
		wantErr bool
	}{
		{in: `5000`, want: "5000"},
		{in: `2500.5`, want: "2500.5"},
		{in: `" 3000 "`, want: "3000"},
		{in: `"5k"`, want: "5k"},
		{in: `0`, want: "0", missing: true},
		{in: `""`, want: "", missing: true},
		{in: `null`, want: "", missing: true},
		{in: `true`, wantErr: true},
		{in: `[1]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b Budget
			err := json.Unmarshal([]byte(tt.in), &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
			assert.Equal(t, tt.missing, b.Missing())
		})
	}
}

func TestExtractPlaces(t *testing.T) {
	places, err := ExtractPlaces(`[{"place":"Goa","description":"Beaches","transportation":"Train"}]`)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Goa", places[0].Place)

	_, err = ExtractPlaces("no json here")
	assert.ErrorIs(t, err, ErrNoPlaces)

	_, err = ExtractPlaces("] backwards [")
	assert.ErrorIs(t, err, ErrNoPlaces)

	_, err = ExtractPlaces(`[{"place": }]`)
	assert.Error(t, err)

	places, err = ExtractPlaces("[]")
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}

func TestExtractPlaces_FirstToLastBracket(t *testing.T) {
	// a trailing ']' after the array breaks the slice, as with any reply
	// that brackets prose after the JSON
	_, err := ExtractPlaces(sampleReply)
	assert.Error(t, err)

	places, err := ExtractPlaces("Here you go:\n" + `[{"place":"Lonavala"},{"place":"Pavana Lake"}]` + "\nEnjoy!")
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Pune", "5000")
	assert.Contains(t, p, `near "Pune"`)
	assert.Contains(t, p, "5000 rupees")
	assert.Contains(t, p, "Transportation options from Pune")
}

func TestRecommend(t *testing.T) {
	gen := &stubGenerator{reply: "Here:\n" + `[{"place":"Lonavala","description":"Hill station","transportation":"Bus"}]`}
	svc := NewService(gen, nil)

	places, err := svc.Recommend(context.Background(), Request{Source: " Pune ", Budget: "5000"})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Lonavala", places[0].Place)
	assert.Contains(t, gen.prompt, `near "Pune"`)
}

func TestRecommend_Validation(t *testing.T) {
	gen := &stubGenerator{}
	svc := NewService(gen, nil)

	for name, req := range map[string]Request{
		"no source": {Budget: "5000"},
		"no budget": {Source: "Pune"},
		"zero":      {Source: "Pune", Budget: "0"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Recommend(context.Background(), req)
			assert.True(t, service.HasCode(err, service.CodeValidation))
			assert.Equal(t, "Source and budget are required", oops.GetPublic(err, ""))
		})
	}
	assert.Empty(t, gen.prompt)
}

func TestRecommend_Failures(t *testing.T) {
	for name, gen := range map[string]Generator{
		"generator error": &stubGenerator{err: errors.New("quota exceeded")},
		"no array":        &stubGenerator{reply: "I cannot help with that."},
		"unavailable":     Unavailable{},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewService(gen, nil).Recommend(context.Background(), Request{Source: "Pune", Budget: "5000"})
			assert.True(t, service.HasCode(err, service.CodeInternal))
			assert.Equal(t, "Something went wrong while recommending places", oops.GetPublic(err, ""))
		})
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	assert.Error(t, err)
}
