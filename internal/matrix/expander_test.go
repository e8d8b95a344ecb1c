package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatrix/cloudmatrix/config"
)

func TestExpandCount(t *testing.T) {
	doc := &config.MatrixDocument{
		Services:             []string{"azkeys", "azsecrets", "azcertificates"},
		SupportedClouds:      "Public, UsGov, China",
		TestTimeoutInMinutes: 10,
		CloudConfig: map[string]config.CloudConfig{
			"Public": {Parameters: []map[string]string{
				{"mode": "standard"},
				{"mode": "hsm"},
			}},
			"UsGov": {Parameters: []map[string]string{
				{"mode": "standard"},
			}},
			// China has no parameter combinations and still yields one job
			// per service.
		},
	}

	specs := Expand("run-1", doc)

	// 3 services x (2 + 1 + 1) combinations.
	require.Len(t, specs, 12)

	perCloud := map[string]int{}
	for _, s := range specs {
		perCloud[s.Cloud]++
		assert.Equal(t, "run-1", s.RunID)
		assert.Equal(t, 10, s.TimeoutMinutes)
	}
	assert.Equal(t, map[string]int{"Public": 6, "UsGov": 3, "China": 3}, perCloud)
}

func TestExpandDeterministicOrder(t *testing.T) {
	doc := &config.MatrixDocument{
		Services:             []string{"ztail", "ahead"},
		SupportedClouds:      "UsGov, Public",
		TestTimeoutInMinutes: 10,
		CloudConfig: map[string]config.CloudConfig{
			"Public": {Parameters: []map[string]string{
				{"mode": "hsm"},
				{"mode": "standard"},
			}},
		},
	}

	specs := Expand("run-1", doc)

	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = s.Key()
	}
	// Sorted by service, then cloud, then serialized parameters, regardless
	// of declaration order in the document.
	assert.Equal(t, []string{
		"ahead/Public/mode=hsm",
		"ahead/Public/mode=standard",
		"ahead/UsGov/",
		"ztail/Public/mode=hsm",
		"ztail/Public/mode=standard",
		"ztail/UsGov/",
	}, keys)

	// Reordering parameter entries leaves the expansion untouched.
	doc.CloudConfig["Public"] = config.CloudConfig{Parameters: []map[string]string{
		{"mode": "standard"},
		{"mode": "hsm"},
	}}
	again := Expand("run-1", doc)
	for i, s := range again {
		assert.Equal(t, keys[i], s.Key())
	}
}

func TestExpandCloudTimeoutOverride(t *testing.T) {
	doc := &config.MatrixDocument{
		Services:             []string{"azkeys"},
		SupportedClouds:      "Public, UsGov",
		TestTimeoutInMinutes: 10,
		CloudConfig: map[string]config.CloudConfig{
			"UsGov": {TimeoutInMinutes: 45},
		},
	}

	for _, spec := range Expand("run-1", doc) {
		switch spec.Cloud {
		case "UsGov":
			assert.Equal(t, 45, spec.TimeoutMinutes)
		default:
			assert.Equal(t, 10, spec.TimeoutMinutes)
		}
	}
}

func TestExpandCopiesEnvAndParameters(t *testing.T) {
	combo := map[string]string{"mode": "hsm"}
	doc := &config.MatrixDocument{
		Services:             []string{"azkeys"},
		SupportedClouds:      "Public",
		TestTimeoutInMinutes: 10,
		CloudConfig: map[string]config.CloudConfig{
			"Public": {Parameters: []map[string]string{combo}},
		},
		EnvVars: map[string]string{"AZURE_TEST_MODE": "live"},
	}

	specs := Expand("run-1", doc)
	require.Len(t, specs, 1)
	assert.Equal(t, map[string]string{"mode": "hsm"}, specs[0].Parameters)
	assert.Equal(t, map[string]string{"AZURE_TEST_MODE": "live"}, specs[0].Env)

	// Specs own copies of the document maps.
	combo["mode"] = "mutated"
	doc.EnvVars["AZURE_TEST_MODE"] = "mutated"
	assert.Equal(t, "hsm", specs[0].Parameters["mode"])
	assert.Equal(t, "live", specs[0].Env["AZURE_TEST_MODE"])
}
