package teleport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsKeys(t *testing.T) {
	got, err := marshalCanonical(map[string]any{
		"zeta":  1.0,
		"alpha": "x",
		"mid":   []any{true, false},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","mid":[true,false],"zeta":1}`, string(got))
}

func TestCanonicalFloats(t *testing.T) {
	got, err := marshalCanonicalFloat(2.0)
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))

	got, err = marshalCanonicalFloat(2.5)
	require.NoError(t, err)
	assert.Equal(t, "2.5", string(got))

	got, err = marshalCanonicalFloat(-0.1)
	require.NoError(t, err)
	assert.Equal(t, "-0.1", string(got))

	_, err = marshalCanonicalFloat(math.NaN())
	assert.Error(t, err)
	_, err = marshalCanonicalFloat(math.Inf(1))
	assert.Error(t, err)
}

func TestCanonicalStringNFC(t *testing.T) {
	// Composed and decomposed forms must serialize identically.
	composed, err := marshalCanonicalString("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := marshalCanonicalString("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestCanonicalStringNoHTMLEscaping(t *testing.T) {
	got, err := marshalCanonicalString(`<div class="a">&</div>`)
	require.NoError(t, err)
	assert.Equal(t, `"<div class=\"a\">&</div>"`, string(got))
}

func TestCanonicalRejectsNull(t *testing.T) {
	_, err := marshalCanonical(nil)
	assert.Error(t, err)

	_, err = marshalCanonical(map[string]any{"k": nil})
	assert.Error(t, err)
}

func TestCanonicalRejectsUnsupportedType(t *testing.T) {
	_, err := marshalCanonical(make(chan int))
	assert.Error(t, err)
}

func TestHashIgnoresUnicodeForm(t *testing.T) {
	build := func(label string) *Snapshot {
		return &Snapshot{
			Meta: Meta{Version: FormatVersion, FrameRate: 30, FrameCount: 1},
			Scenes: []SceneSnapshot{{
				Selector: "#s",
				Animations: []AnimationSnapshot{{
					Selector: "#s",
					Duration: 1,
					Tasks:    []TaskSnapshot{{Handler: "hold", Params: map[string]any{"label": label}}},
				}},
			}},
		}
	}

	a, err := Hash(build("caf\u00e9"))
	require.NoError(t, err)
	b, err := Hash(build("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
