package collector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKubernetesSupportedSources(t *testing.T) {
	k := NewKubernetesCollector(t.TempDir())
	sources := k.SupportedSources()
	assert.Len(t, sources, 8)
	for _, source := range []string{
		KubernetesPodLogs,
		KubernetesPodSpecs,
		KubernetesWorkloadSpecs,
		KubernetesEvents,
		KubernetesConfigMaps,
		KubernetesNetworkPolicies,
		KubernetesSecretsMetadata,
		KubernetesAllResources,
	} {
		assert.Contains(t, sources, source)
	}
}

func TestRedactSecretValuesList(t *testing.T) {
	listing := []byte(`{
		"apiVersion": "v1",
		"kind": "List",
		"items": [
			{
				"metadata": {"name": "db-credentials", "namespace": "prod"},
				"type": "Opaque",
				"data": {"password": "aHVudGVyMg=="}
			},
			{
				"metadata": {"name": "tls-cert", "namespace": "prod"},
				"type": "kubernetes.io/tls",
				"data": {"tls.key": "c2VjcmV0"},
				"stringData": {"note": "plaintext"}
			}
		]
	}`)

	redacted, err := redactSecretValues(listing)
	require.NoError(t, err)

	assert.NotContains(t, string(redacted), "aHVudGVyMg==")
	assert.NotContains(t, string(redacted), "c2VjcmV0")
	assert.NotContains(t, string(redacted), "plaintext")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(redacted, &doc))
	items := doc["items"].([]any)
	require.Len(t, items, 2)
	for _, item := range items {
		secret := item.(map[string]any)
		assert.Equal(t, "[REDACTED]", secret["data"])
		assert.NotNil(t, secret["metadata"])
	}
	// Names and types stay visible; only the values go.
	assert.Contains(t, string(redacted), "db-credentials")
	assert.Contains(t, string(redacted), "kubernetes.io/tls")
}

func TestRedactSecretValuesSingleObject(t *testing.T) {
	single := []byte(`{
		"apiVersion": "v1",
		"kind": "Secret",
		"metadata": {"name": "api-token"},
		"data": {"token": "dG9rZW4="}
	}`)

	redacted, err := redactSecretValues(single)
	require.NoError(t, err)
	assert.NotContains(t, string(redacted), "dG9rZW4=")
	assert.Contains(t, string(redacted), "api-token")
	assert.Contains(t, string(redacted), "[REDACTED]")
}

func TestRedactSecretValuesBadInput(t *testing.T) {
	_, err := redactSecretValues([]byte("not json"))
	require.Error(t, err)
}

func TestKubernetesCollectRejectsUnknownSource(t *testing.T) {
	k := NewKubernetesCollector(t.TempDir())
	_, err := k.Collect(context.Background(), "registry_hives", nil)
	require.ErrorIs(t, err, ErrUnsupportedSource)
}
