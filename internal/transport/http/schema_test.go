package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalSchema(t *testing.T) {
	schema, err := NewSignalSchema()
	assert.NoError(t, err)

	valid := []byte(`{
		"symbol": "EURUSD",
		"pattern": "SPRING",
		"confidence": 75,
		"r_multiple": 3.0,
		"entry": "1.1000",
		"stop": "1.0950",
		"target": "1.1150",
		"size": "10000"
	}`)

	t.Run("Valid Payload", func(t *testing.T) {
		assert.NoError(t, schema.Validate(valid))
	})

	t.Run("Not JSON", func(t *testing.T) {
		assert.Error(t, schema.Validate([]byte("not json")))
	})

	t.Run("Unknown Pattern", func(t *testing.T) {
		bad := []byte(`{"symbol":"EURUSD","pattern":"BREAKOUT","confidence":75,"r_multiple":3,"entry":"1.1","stop":"1.0","target":"1.2","size":"1"}`)
		assert.Error(t, schema.Validate(bad))
	})

	t.Run("Missing Required Field", func(t *testing.T) {
		bad := []byte(`{"symbol":"EURUSD","pattern":"SPRING","confidence":75}`)
		assert.Error(t, schema.Validate(bad))
	})

	t.Run("Confidence Out Of Range", func(t *testing.T) {
		bad := []byte(`{"symbol":"EURUSD","pattern":"SPRING","confidence":120,"r_multiple":3,"entry":"1.1","stop":"1.0","target":"1.2","size":"1"}`)
		assert.Error(t, schema.Validate(bad))
	})

	t.Run("Non Decimal Price", func(t *testing.T) {
		bad := []byte(`{"symbol":"EURUSD","pattern":"SPRING","confidence":75,"r_multiple":3,"entry":"abc","stop":"1.0","target":"1.2","size":"1"}`)
		assert.Error(t, schema.Validate(bad))
	})

	t.Run("Unknown Field Rejected", func(t *testing.T) {
		bad := []byte(`{"symbol":"EURUSD","pattern":"SPRING","confidence":75,"r_multiple":3,"entry":"1.1","stop":"1.0","target":"1.2","size":"1","leverage":50}`)
		assert.Error(t, schema.Validate(bad))
	})
}
