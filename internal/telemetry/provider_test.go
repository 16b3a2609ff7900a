package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	for _, s := range []Settings{
		{Enabled: true},
		{Endpoint: "http://127.0.0.1:4318", Enabled: false},
	} {
		shutdown, err := Setup(context.Background(), s)
		if err != nil {
			t.Fatalf("Setup(%+v): %v", s, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}
