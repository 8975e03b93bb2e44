package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier(t *testing.T) {
	v := BcryptVerifier{Cost: bcrypt.MinCost}
	hash, err := v.Hash("s3cret")
	require.NoError(t, err)

	assert.True(t, v.Verify("s3cret", hash))
	assert.False(t, v.Verify("wrong", hash))
	assert.False(t, v.Verify("s3cret", ""))
	assert.False(t, v.Verify("s3cret", "not-a-bcrypt-hash"))

	_, err = v.Hash("")
	assert.Error(t, err)
}

func TestAcceptAllVerifier(t *testing.T) {
	assert.True(t, AcceptAllVerifier{}.Verify("anything", ""))
}

func TestNew(t *testing.T) {
	tests := []struct {
		mode    string
		want    any
		wantErr bool
	}{
		{mode: "", want: BcryptVerifier{}},
		{mode: "strict", want: BcryptVerifier{}},
		{mode: " Accept-All ", want: AcceptAllVerifier{}},
		{mode: "noop", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := New(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}
