//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	SubscriptionID string
	Location       string
	Auth           string
	ArmcPath       string
	Verbose        bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	location := os.Getenv("ARMC_TEST_LOCATION")
	if location == "" {
		location = "eastus"
	}

	auth := os.Getenv("ARMC_AUTH")
	if auth == "" {
		auth = "cli"
	}

	return &TestConfig{
		SubscriptionID: os.Getenv("ARMC_TEST_SUBSCRIPTION_ID"),
		Location:       location,
		Auth:           auth,
		ArmcPath:       getArmcPath(),
		Verbose:        os.Getenv("ARMC_VERBOSE") == "true",
	}
}

// getArmcPath determines the path to the armc binary.
func getArmcPath() string {
	if path := os.Getenv("ARMC_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../armc",
		"./armc",
		"../armc",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "armc"
}

// SkipIfMissingConfig skips the test if required config is missing.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.SubscriptionID == "" {
		t.Skip("ARMC_TEST_SUBSCRIPTION_ID not set, skipping integration test")
	}
}

// RequireBinary skips the test if the armc binary cannot be found.
func (config *TestConfig) RequireBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.ArmcPath); err != nil {
		t.Skipf("armc binary not found at %s, skipping integration test", config.ArmcPath)
	}
}

// ResourceGroupPath returns the resource path of a resource group in the test subscription.
func (config *TestConfig) ResourceGroupPath(name string) string {
	if name == "" {
		return fmt.Sprintf("/subscriptions/%s/resourcegroups", config.SubscriptionID)
	}

	return fmt.Sprintf("/subscriptions/%s/resourcegroups/%s", config.SubscriptionID, name)
}

// CommandRunner runs armc commands.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes an armc command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes an armc command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--auth", runner.config.Auth}, args...)

	cmd := exec.Command(runner.config.ArmcPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.ArmcPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// CleanupResourceGroup attempts to delete a test resource group.
func (runner *CommandRunner) CleanupResourceGroup(name string) {
	stdout, stderr, err := runner.Run("delete", runner.config.ResourceGroupPath(name), "--api-version", ResourceGroupsAPIVersion)
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for resource group %s: %s\nStderr: %s", name, stdout, stderr)
	}
}

// ResourceGroupsAPIVersion is the api-version used for resource group calls.
const ResourceGroupsAPIVersion = "2021-04-01"

// GenerateTestName creates a unique test resource name.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().Unix())
}

// WaitForCondition waits for a condition to be met with timeout.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	timeoutChan := time.After(timeout)

	for {
		select {
		case <-ticker.C:
			if condition() {
				return
			}
		case <-timeoutChan:
			t.Fatalf("Timeout waiting for condition: %s", message)
		}
	}
}

// AssertJSONOutput verifies command output is valid JSON and returns it decoded.
func AssertJSONOutput(t *testing.T, output string) interface{} {
	t.Helper()

	var decoded interface{}

	err := json.Unmarshal([]byte(strings.TrimSpace(output)), &decoded)
	if err != nil {
		t.Errorf("Output is not JSON: %v\n%s", err, output)
	}

	return decoded
}
