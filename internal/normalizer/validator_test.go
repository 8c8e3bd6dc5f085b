package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pricewatch/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator("pricecharting.com")

	tests := []struct {
		name string
		ref  models.ItemReference
		want error
	}{
		{"https", "https://www.pricecharting.com/game/pokemon-base-set/charizard-4", nil},
		{"http apex", "http://pricecharting.com/game/x", nil},
		{"with port", "https://www.pricecharting.com:443/game/x", nil},
		{"upper case host", "https://WWW.PriceCharting.com/game/x", nil},
		{"empty", "   ", ErrEmptyReference},
		{"ftp", "ftp://www.pricecharting.com/game/x", ErrUnsupportedScheme},
		{"no scheme", "www.pricecharting.com/game/x", ErrUnsupportedScheme},
		{"other host", "https://example.com/game/x", ErrUnexpectedHost},
		{"suffix lookalike", "https://evilpricecharting.com/game/x", ErrUnexpectedHost},
		{"missing host", "https:///game/x", ErrMalformedReference},
		{"bad escape", "https://www.pricecharting.com/%zz", ErrMalformedReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.ref)
			if tt.want == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.want)
		})
	}
}
