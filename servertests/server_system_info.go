package servertests

import (
	"fmt"
	"runtime"

	"github.com/lemonade-sdk/server-test-harness/data/testmodel"
	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

// doSystemInfoTests verifies the server's capability resolution against each synthetic
// hardware fixture. Every fixture needs its own server instance started over an
// isolated cache directory, so these tests bypass the suite lifecycle entirely and run
// per-test servers no matter which mode the run was configured with.
func doSystemInfoTests(t *lmtest.T) {
	ctx := requireContext(t)

	// Free the port in case a shared suite server is still holding it.
	ctx.lifecycle.Close()

	for _, fixture := range ctx.fixtures {
		fixture := fixture
		t.Run(fixture.Name, func(t *lmtest.T) {
			doSystemInfoFixtureTest(t, fixture)
		})
	}
}

func doSystemInfoFixtureTest(t *lmtest.T, fixture testmodel.HardwareFixture) {
	// Platform detection in the server is compiled in, so a fixture describing another
	// OS or architecture cannot be observed from this machine's binary.
	if !fixture.AppliesTo(runtime.GOOS, runtime.GOARCH) {
		t.SkipWithReason(fmt.Sprintf(
			"the binary's compiled-in platform detection (%s/%s) cannot mock %s/%s",
			runtime.GOOS, runtime.GOARCH, fixture.RequiresOS, fixture.RequiresArch))
	}

	ctx := requireContext(t)
	cacheDir, err := harness.NewCacheFixtureDir(
		fixture.Name, ctx.harness.Binary().VersionString, fixture.Hardware, t.DebugLogger())
	require.NoError(t, err)
	t.Defer(cacheDir.Remove)

	// CI mode would invalidate the cache, which defeats the fixture.
	handle, err := ctx.harness.StartServer(
		cacheDir.Env(),
		harness.WithNoTray(),
		harness.WithoutEnvVar(harness.EnvVarCIMode),
	)
	require.NoError(t, err, "could not start a server over the mock cache")
	t.Defer(handle.Stop)

	client := NewAPIClient(ctx.harness.BaseURL(), t.DebugLogger())
	report := client.SystemInfo(t)
	t.DebugLogger().Printf("recipes returned: %v", report.RecipeNames())

	// A recipe named by either expectation set must be present in the report no matter
	// what its support status is; absence means the resolution is broken.
	for _, recipe := range sortedRecipes(fixture.ExpectSupported) {
		require.True(t, report.HasRecipe(recipe), "expected recipe %q in the report", recipe)
		for _, backend := range fixture.ExpectSupported[recipe] {
			info, ok := report.Backend(recipe, backend)
			require.True(t, ok, "expected backend %q for recipe %q in the report", backend, recipe)
			assert.True(t, info.Supported,
				"expected %s/%s to be supported, got %+v", recipe, backend, info)
		}
	}
	for _, recipe := range sortedRecipes(fixture.ExpectUnsupported) {
		require.True(t, report.HasRecipe(recipe), "expected recipe %q in the report", recipe)
		for _, backend := range fixture.ExpectUnsupported[recipe] {
			info, ok := report.Backend(recipe, backend)
			require.True(t, ok, "expected backend %q for recipe %q in the report", backend, recipe)
			assert.False(t, info.Supported,
				"expected %s/%s to be unsupported, got %+v", recipe, backend, info)
		}
	}
}

func sortedRecipes(expectations map[string][]string) []string {
	recipes := make([]string, 0, len(expectations))
	for recipe := range expectations {
		recipes = append(recipes, recipe)
	}
	slices.Sort(recipes)
	return recipes
}
