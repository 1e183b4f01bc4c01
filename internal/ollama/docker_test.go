package ollama

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	if DefaultContainerName != "textspot-ollama" {
		t.Errorf("unexpected default container name: %s", DefaultContainerName)
	}
	if DefaultImage != "ollama/ollama:latest" {
		t.Errorf("unexpected default image: %s", DefaultImage)
	}
	if DefaultPort != "11434" {
		t.Errorf("unexpected default port: %s", DefaultPort)
	}
	if ContainerPort != "11434/tcp" {
		t.Errorf("unexpected container port: %s", ContainerPort)
	}
}

func TestManagerURL(t *testing.T) {
	tests := []struct {
		name string
		port string
		want string
	}{
		{"default port", "11434", "http://localhost:11434"},
		{"custom port", "9999", "http://localhost:9999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manager{hostPort: tt.port}
			if got := m.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}
