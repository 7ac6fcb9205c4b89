package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitstock-api/internal/model"
)

func TestParseKitCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		serials [][]string
		batches [][]string
	}{
		{
			name:    "single serial layout",
			input:   "serialNumber,batchNumber\nSN1,B1\nSN2,B2\n",
			serials: [][]string{{"SN1"}, {"SN2"}},
			batches: [][]string{{"B1"}, {"B2"}},
		},
		{
			name:    "paired serial layout with bom",
			input:   "\ufeffserialNumber1,serialNumber2,batchNumber\nA,B,X\n",
			serials: [][]string{{"A", "B"}},
			batches: [][]string{{"X"}},
		},
		{
			name:    "short rows carry empty values",
			input:   "serialNumber,batchNumber\nONLY\n",
			serials: [][]string{{"ONLY"}},
			batches: [][]string{{}},
		},
		{
			name:  "header only",
			input: "serialNumber,batchNumber\n",
		},
		{
			name:  "empty document",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kits, err := ParseKitCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, kits, len(tt.serials))
			for i, k := range kits {
				assert.Equal(t, model.KitAvailable, k.Status)
				assert.Equal(t, tt.serials[i], []string(k.SerialNumbers))
				assert.Equal(t, tt.batches[i], []string(k.BatchNumbers))
				assert.NotEmpty(t, k.ID)
			}
		})
	}
}

func TestParseKitCSV_Malformed(t *testing.T) {
	_, err := ParseKitCSV(strings.NewReader("serialNumber\n\"unterminated\n"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestParseKitCSV_StatusColumnIgnored(t *testing.T) {
	kits, err := ParseKitCSV(strings.NewReader("serialNumber,batchNumber,status\nSN1,B1,sold\nSN2,B2,\n"))
	require.NoError(t, err)
	require.Len(t, kits, 2)
	for _, k := range kits {
		assert.Equal(t, model.KitAvailable, k.Status)
		assert.Empty(t, k.OrderID)
	}
}
