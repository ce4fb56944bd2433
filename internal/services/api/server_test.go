package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/temirov/cabalfmt/internal/services/api"
)

func TestServerRunExposesCapabilities(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		config       api.Config
		expectedCaps []api.Capability
	}{
		{
			name:         "format capability",
			config:       api.Config{Capabilities: []api.Capability{api.FormatCapability()}, Address: "127.0.0.1:0"},
			expectedCaps: []api.Capability{{Name: "format", Description: api.FormatCommandDescription}},
		},
		{
			name:         "no capabilities",
			config:       api.Config{},
			expectedCaps: []api.Capability{},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			server := api.NewServer(testCase.config)
			addressCh := make(chan string, 1)
			errorCh := make(chan error, 1)

			go func() {
				errorCh <- server.Run(ctx, func(address string) {
					addressCh <- address
				})
			}()

			select {
			case address := <-addressCh:
				client := http.Client{Timeout: 2 * time.Second}
				request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+address+"/capabilities", nil)
				if err != nil {
					t.Fatalf("new request: %v", err)
				}
				response, err := client.Do(request)
				if err != nil {
					t.Fatalf("perform request: %v", err)
				}
				defer response.Body.Close()

				if response.StatusCode != http.StatusOK {
					t.Fatalf("unexpected status: %d", response.StatusCode)
				}
				var body struct {
					Capabilities []api.Capability `json:"capabilities"`
				}
				if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if len(body.Capabilities) != len(testCase.expectedCaps) {
					t.Fatalf("expected %d capabilities, got %d", len(testCase.expectedCaps), len(body.Capabilities))
				}
				for index, capability := range body.Capabilities {
					if capability != testCase.expectedCaps[index] {
						t.Fatalf("capability %d mismatch: got %+v, want %+v", index, capability, testCase.expectedCaps[index])
					}
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("server did not start")
			}

			cancel()
			if err := <-errorCh; err != nil {
				t.Fatalf("server error: %v", err)
			}
		})
	}
}
