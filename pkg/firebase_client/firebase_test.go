package firebase_client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travigo/youroute/pkg/config"
)

func TestConnectRequiresServiceAccount(t *testing.T) {
	_, err := Connect(context.Background(), config.FirebaseConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConnectRejectsInvalidEncoding(t *testing.T) {
	_, err := Connect(context.Background(), config.FirebaseConfig{ServiceAccount: "not base64!"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}
