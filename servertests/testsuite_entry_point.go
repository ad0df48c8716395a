package servertests

import (
	"fmt"
	"os"

	"github.com/lemonade-sdk/server-test-harness/data"
	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"
)

// RunServerTestSuite runs every test area against the server binary that the harness
// controls. The lifecycle policy decides when server instances are started and stopped
// around individual tests; whatever it leaves running at the end is released here, on
// every exit path, before the results are returned.
func RunServerTestSuite(
	serverHarness *harness.ServerHarness,
	lifecycle harness.Lifecycle,
	capabilities framework.Capabilities,
	failFast bool,
	filter lmtest.Filter,
	testLogger lmtest.TestLogger,
) lmtest.Results {
	defer lifecycle.Close()

	fixtures, err := data.LoadHardwareFixtures()
	if err != nil {
		return lmtest.Results{
			Failures: []lmtest.TestResult{
				{Errors: []error{fmt.Errorf("could not load hardware fixture data: %w", err)}},
			},
		}
	}

	fmt.Printf("Running server test suite: wrapped server %q, %s server lifecycle\n",
		serverHarness.WrappedServer(), lifecycle.Describe())
	fmt.Println()
	if sdf, ok := filter.(lmtest.SelfDescribingFilter); ok {
		sdf.Describe(os.Stdout, capabilities, allImportantCapabilities(serverHarness.WrappedServer()))
	}

	config := lmtest.TestConfiguration{
		Filter:       filter,
		Capabilities: capabilities,
		TestLogger:   testLogger,
		FailFast:     failFast,
		Context: ServerTestContext{
			harness:   serverHarness,
			lifecycle: lifecycle,
			fixtures:  fixtures,
		},
	}

	return lmtest.Run(config, func(t *lmtest.T) {
		// The system info tests replace the shared server with fixture-specific
		// instances, so they always run after everything that uses the shared one.
		t.Run("server lifecycle", doServerLifecycleTests)
		t.Run("chat completions", doChatCompletionTests)
		t.Run("completions", doCompletionTests)
		t.Run("responses", doResponsesTests)
		t.Run("embeddings", doEmbeddingsTests)
		t.Run("reranking", doRerankingTests)
		t.Run("model management", doModelManagementTests)
		t.Run("image generation", doImageGenerationTests)
		t.Run("log streaming", doLogStreamingTests)
		t.Run("system info", doSystemInfoTests)
	})
}

// allImportantCapabilities lists the capabilities whose absence skips an entire test
// area, so the run banner can call them out up front.
func allImportantCapabilities(wrappedServer string) framework.Capabilities {
	features := []string{
		servicedef.FeatureChatCompletions,
		servicedef.FeatureCompletions,
		servicedef.FeatureResponsesAPI,
		servicedef.FeatureEmbeddings,
		servicedef.FeatureReranking,
		servicedef.FeatureMultiModel,
		servicedef.FeatureImageGeneration,
	}
	ret := make(framework.Capabilities, 0, len(features))
	for _, feature := range features {
		ret = append(ret, wrappedServer+"/"+feature)
	}
	return ret
}
