package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name        string
		component   string
		objectType  string
		identifier  string
		parts       []string
		expectedKey string
	}{
		{
			name:        "without parts",
			component:   "store",
			objectType:  ObjectBlob,
			identifier:  "01HZX",
			expectedKey: "examroom:store:blob:01HZX",
		},
		{
			name:        "with empty parts",
			component:   "store",
			objectType:  ObjectBlob,
			identifier:  "01HZX",
			parts:       []string{},
			expectedKey: "examroom:store:blob:01HZX",
		},
		{
			name:        "with multiple parts",
			component:   "serializer",
			objectType:  ObjectLock,
			identifier:  "global",
			parts:       []string{"a", "b"},
			expectedKey: "examroom:serializer:lock:global:a_b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedKey, GenerateKey(tt.component, tt.objectType, tt.identifier, tt.parts...))
		})
	}
}
