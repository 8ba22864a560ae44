package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/prepmate/interview-client/internal/auth"
	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/store"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIURL:                     apiURL,
		DefaultTimeLimit:           45,
		AudioBufferSize:            4096,
		AudioDevice:                config.DeviceFFmpeg,
		AudioInputFormat:           "pulse",
		AudioInput:                 "default",
		VADEnergyThreshold:         0.015,
		VADSilenceFrames:           4,
		TranscriptionProvider:      config.ProviderRealtime,
		CloseGracePeriod:           10,
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
		RetryMaxAttempts:           1,
		RetryInitialBackoff:        1,
		KafkaTopicPartial:          "interview.transcript.partial",
		KafkaTopicFinal:            "interview.transcript.final",
	}
}

// testApp installs an AppContext backed by handler and a temporary store
func testApp(t *testing.T, handler http.HandlerFunc) *AppContext {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	st, err := store.OpenDSN(context.Background(), "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	app := newApp(testConfig(server.URL), st)
	appOverride = app
	t.Cleanup(func() {
		appOverride = nil
		st.Close()
	})
	return app
}

func login(t *testing.T, app *AppContext) {
	t.Helper()
	err := app.Store.Credentials().Set(auth.Credentials{
		Token: "tok",
		User:  &auth.UserInfo{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to store credentials: %v", err)
	}
}

// resetFlags restores every flag to its default so tests do not leak values
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the command tree with args and stdin, returning combined output
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
