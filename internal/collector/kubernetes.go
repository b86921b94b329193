package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilexum-group/nimbex/internal/logging"
)

// Kubernetes sources.
const (
	KubernetesPodLogs         = "pod_logs"
	KubernetesPodSpecs        = "pod_specs"
	KubernetesWorkloadSpecs   = "workload_specs"
	KubernetesEvents          = "events"
	KubernetesConfigMaps      = "configmaps"
	KubernetesNetworkPolicies = "network_policies"
	KubernetesSecretsMetadata = "secrets_metadata"
	KubernetesAllResources    = "all_resources"
)

const defaultNamespace = "default"

// workloadResources are the controller and service objects captured by the
// workload_specs source.
var workloadResources = []string{
	"deployments", "services", "replicasets", "daemonsets", "statefulsets",
}

// KubernetesCollector collects cluster evidence through kubectl.
type KubernetesCollector struct {
	outputDir string
	context   string
}

// NewKubernetesCollector creates a Kubernetes adapter that writes evidence
// files into outputDir.
func NewKubernetesCollector(outputDir string) *KubernetesCollector {
	return &KubernetesCollector{outputDir: outputDir}
}

// Provider returns "kubernetes".
func (k *KubernetesCollector) Provider() string { return "kubernetes" }

// SupportedSources lists the Kubernetes source types.
func (k *KubernetesCollector) SupportedSources() []string {
	return []string{
		KubernetesPodLogs,
		KubernetesPodSpecs,
		KubernetesWorkloadSpecs,
		KubernetesEvents,
		KubernetesConfigMaps,
		KubernetesNetworkPolicies,
		KubernetesSecretsMetadata,
		KubernetesAllResources,
	}
}

// Authenticate verifies that a cluster context is configured and reachable.
func (k *KubernetesCollector) Authenticate(ctx context.Context) error {
	out, err := runCommand(ctx, "kubectl", "config", "current-context")
	if err != nil {
		return fmt.Errorf("%w: no usable kubectl context: %v", ErrAuthentication, err)
	}
	k.context = strings.TrimSpace(string(out))
	logging.LogInfo("Connected to Kubernetes", map[string]string{"context": k.context})
	return nil
}

// SourceMetadata describes the cluster environment.
func (k *KubernetesCollector) SourceMetadata(source string) map[string]any {
	return map[string]any{"kubectl_context": k.context}
}

// Collect fetches evidence for one Kubernetes source type.
func (k *KubernetesCollector) Collect(ctx context.Context, source string, params Params) ([]string, error) {
	namespace := params["namespace"]
	if namespace == "" {
		namespace = defaultNamespace
	}

	switch source {
	case KubernetesPodLogs:
		return k.collectPodLogs(ctx, namespace, params)
	case KubernetesPodSpecs:
		return k.collectResource(ctx, namespace, "pods", "k8s_pods")
	case KubernetesWorkloadSpecs:
		return k.collectWorkloadSpecs(ctx, namespace)
	case KubernetesEvents:
		return k.collectResource(ctx, namespace, "events", "k8s_events")
	case KubernetesConfigMaps:
		return k.collectResource(ctx, namespace, "configmaps", "k8s_configmaps")
	case KubernetesNetworkPolicies:
		return k.collectResource(ctx, namespace, "networkpolicies", "k8s_network_policies")
	case KubernetesSecretsMetadata:
		return k.collectSecretsMetadata(ctx, namespace)
	case KubernetesAllResources:
		return k.collectAllResources(ctx, namespace)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func (k *KubernetesCollector) collectPodLogs(ctx context.Context, namespace string, params Params) ([]string, error) {
	pod := params["pod"]
	if pod == "" {
		return nil, fmt.Errorf("pod parameter is required for %s", KubernetesPodLogs)
	}

	args := []string{"logs", "--timestamps", "-n", namespace}
	// kubectl bounds logs on the start side only; the end of the window is
	// recorded in the manifest's source metadata instead.
	if since := params["start_time"]; since != "" {
		args = append(args, "--since-time", since)
	}
	args = append(args, pod)

	out, err := runCommand(ctx, "kubectl", args...)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for pod %s/%s: %w", namespace, pod, err)
	}

	path, err := k.writeEvidence(fmt.Sprintf("k8s_logs_%s_%s", namespace, safeName(pod)), "log", out)
	if err != nil {
		return nil, err
	}
	logging.LogInfo("Pod logs collected", map[string]string{"namespace": namespace, "pod": pod})
	return []string{path}, nil
}

func (k *KubernetesCollector) collectWorkloadSpecs(ctx context.Context, namespace string) ([]string, error) {
	var files []string
	for _, resource := range workloadResources {
		paths, err := k.collectResource(ctx, namespace, resource, "k8s_"+resource)
		if err != nil {
			logging.LogWarn("Skipping workload resource", map[string]string{
				"resource": resource, "namespace": namespace, "error": err.Error(),
			})
			continue
		}
		files = append(files, paths...)
	}
	return files, nil
}

// collectSecretsMetadata records which secrets exist without ever persisting
// their values: data and stringData are stripped before the listing touches
// disk.
func (k *KubernetesCollector) collectSecretsMetadata(ctx context.Context, namespace string) ([]string, error) {
	out, err := runCommand(ctx, "kubectl", "get", "secrets", "-n", namespace, "-o", "json")
	if err != nil {
		return nil, fmt.Errorf("get secrets in %s: %w", namespace, err)
	}

	redacted, err := redactSecretValues(out)
	if err != nil {
		return nil, err
	}

	path, err := k.writeEvidence(fmt.Sprintf("k8s_secrets_metadata_%s", namespace), "json", redacted)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (k *KubernetesCollector) collectAllResources(ctx context.Context, namespace string) ([]string, error) {
	collect := []struct {
		name string
		fn   func(context.Context, string) ([]string, error)
	}{
		{KubernetesWorkloadSpecs, k.collectWorkloadSpecs},
		{KubernetesSecretsMetadata, k.collectSecretsMetadata},
		{KubernetesConfigMaps, func(ctx context.Context, ns string) ([]string, error) {
			return k.collectResource(ctx, ns, "configmaps", "k8s_configmaps")
		}},
		{KubernetesNetworkPolicies, func(ctx context.Context, ns string) ([]string, error) {
			return k.collectResource(ctx, ns, "networkpolicies", "k8s_network_policies")
		}},
		{KubernetesPodSpecs, func(ctx context.Context, ns string) ([]string, error) {
			return k.collectResource(ctx, ns, "pods", "k8s_pods")
		}},
		{KubernetesEvents, func(ctx context.Context, ns string) ([]string, error) {
			return k.collectResource(ctx, ns, "events", "k8s_events")
		}},
	}

	var files []string
	for _, step := range collect {
		paths, err := step.fn(ctx, namespace)
		if err != nil {
			logging.LogWarn("Skipping cluster source", map[string]string{
				"source": step.name, "namespace": namespace, "error": err.Error(),
			})
			continue
		}
		files = append(files, paths...)
	}
	return files, nil
}

func (k *KubernetesCollector) collectResource(ctx context.Context, namespace, resource, prefix string) ([]string, error) {
	out, err := runCommand(ctx, "kubectl", "get", resource, "-n", namespace, "-o", "json")
	if err != nil {
		return nil, fmt.Errorf("get %s in %s: %w", resource, namespace, err)
	}

	path, err := k.writeEvidence(fmt.Sprintf("%s_%s", prefix, namespace), "json", out)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (k *KubernetesCollector) writeEvidence(prefix, ext string, data []byte) (string, error) {
	timestamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(k.outputDir, fmt.Sprintf("%s_%s.%s", prefix, timestamp, ext))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return path, nil
}

// redactSecretValues strips data and stringData from a kubectl secrets
// listing, leaving metadata and type intact. Handles both a List document
// and a single secret object.
func redactSecretValues(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse secrets listing: %w", err)
	}

	if items, ok := doc["items"].([]any); ok {
		for _, item := range items {
			if secret, ok := item.(map[string]any); ok {
				redactSecret(secret)
			}
		}
	} else {
		redactSecret(doc)
	}

	redacted, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode redacted secrets: %w", err)
	}
	return redacted, nil
}

func redactSecret(secret map[string]any) {
	for _, key := range []string{"data", "stringData"} {
		if _, ok := secret[key]; ok {
			secret[key] = "[REDACTED]"
		}
	}
}
