package mockserver

import (
	"net/http"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// DefaultSystemInfo is the document GET /system-info serves unless the mock was
// configured with its own: a GPU-less x86 Linux machine, where the llamacpp and sd-cpp
// CPU paths are supported and every hardware- or OS-gated backend is not. SetSystemInfo
// replaces it when a test needs a different hardware story.
func DefaultSystemInfo() ldvalue.Value {
	const processor = "AMD EPYC 7763 64-Core Processor"

	noDevice := ldvalue.ObjectBuild().
		SetString("name", "None").
		SetBool("available", false).
		Build()
	devices := ldvalue.ObjectBuild().
		Set("cpu", ldvalue.ObjectBuild().
			SetString("name", processor).
			SetInt("cores", 64).
			SetInt("threads", 128).
			SetBool("available", true).
			Build()).
		Set("amd_igpu", noDevice).
		Set("amd_dgpu", ldvalue.ArrayOf()).
		Set("nvidia_dgpu", ldvalue.ArrayOf()).
		Set("npu", noDevice).
		Build()

	recipes := ldvalue.ObjectBuild().
		Set("llamacpp", recipeInfo(map[string]ldvalue.Value{
			"cpu":    workingBackend("b4732", "cpu"),
			"vulkan": workingBackend("b4732", "cpu"),
			"metal":  failedBackend("Requires macOS"),
			"rocm":   failedBackend("No compatible device detected for llamacpp (rocm backend). Requires: AMD Radeon 7000 series or newer."),
		})).
		Set("whispercpp", recipeInfo(map[string]ldvalue.Value{
			"npu": failedBackend("Requires Windows"),
			"cpu": failedBackend("Requires Windows"),
		})).
		Set("sd-cpp", recipeInfo(map[string]ldvalue.Value{
			"cpu":  workingBackend("master-6c88b3a", "cpu"),
			"rocm": failedBackend("No compatible device detected for sd-cpp (rocm backend). Requires: AMD Radeon 7000 series or newer."),
		})).
		Set("flm", recipeInfo(map[string]ldvalue.Value{
			"default": failedBackend("Requires Windows"),
		})).
		Set("ryzenai-llm", recipeInfo(map[string]ldvalue.Value{
			"default": failedBackend("No compatible device detected for ryzenai-llm. Requires: AMD Ryzen AI 300 series processor."),
		})).
		Build()

	return ldvalue.ObjectBuild().
		SetString("OS Version", "Linux-6.5.0-generic Ubuntu 22.04.3 LTS").
		SetString("Processor", processor).
		SetString("Physical Memory", "256 GB").
		Set("devices", devices).
		Set("recipes", recipes).
		Build()
}

func recipeInfo(backends map[string]ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for name, status := range backends {
		b.Set(name, status)
	}
	return ldvalue.ObjectBuild().Set("backends", b.Build()).Build()
}

func workingBackend(version string, devices ...string) ldvalue.Value {
	devs := ldvalue.ArrayBuild()
	for _, d := range devices {
		devs.Add(ldvalue.String(d))
	}
	return ldvalue.ObjectBuild().
		SetBool("supported", true).
		SetBool("available", true).
		Set("devices", devs.Build()).
		SetString("version", version).
		Build()
}

func failedBackend(message string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		SetBool("supported", false).
		SetBool("available", false).
		Set("devices", ldvalue.ArrayOf()).
		SetString("error", message).
		Build()
}

func (s *MockInferenceServer) getSystemInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method == "HEAD" {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.lock.RLock()
	info := s.systemInfo
	s.lock.RUnlock()
	s.writeJSON(w, http.StatusOK, info)
}
