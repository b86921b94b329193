package collector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilexum-group/nimbex/internal/logging"
)

// Docker sources.
const (
	DockerContainerLogs    = "container_logs"
	DockerContainerInspect = "container_inspect"
	DockerImageInfo        = "image_info"
	DockerNetworkInfo      = "network_info"
	DockerAllContainers    = "all_containers"
)

const defaultLogTail = "10000"

// DockerCollector collects container evidence through the docker CLI.
type DockerCollector struct {
	outputDir     string
	serverVersion string
}

// NewDockerCollector creates a Docker adapter that writes evidence files
// into outputDir.
func NewDockerCollector(outputDir string) *DockerCollector {
	return &DockerCollector{outputDir: outputDir}
}

// Provider returns "docker".
func (d *DockerCollector) Provider() string { return "docker" }

// SupportedSources lists the Docker source types.
func (d *DockerCollector) SupportedSources() []string {
	return []string{
		DockerContainerLogs,
		DockerContainerInspect,
		DockerImageInfo,
		DockerNetworkInfo,
		DockerAllContainers,
	}
}

// Authenticate verifies that the Docker daemon is reachable.
func (d *DockerCollector) Authenticate(ctx context.Context) error {
	out, err := runCommand(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return fmt.Errorf("%w: docker daemon unreachable: %v", ErrAuthentication, err)
	}
	d.serverVersion = strings.TrimSpace(string(out))
	logging.LogInfo("Connected to Docker", map[string]string{"version": d.serverVersion})
	return nil
}

// SourceMetadata describes the Docker environment.
func (d *DockerCollector) SourceMetadata(source string) map[string]any {
	return map[string]any{"docker_version": d.serverVersion}
}

// Collect fetches evidence for one Docker source type.
func (d *DockerCollector) Collect(ctx context.Context, source string, params Params) ([]string, error) {
	switch source {
	case DockerContainerLogs:
		return d.collectContainerLogs(ctx, params)
	case DockerContainerInspect:
		return d.collectContainerInspect(ctx, params)
	case DockerImageInfo:
		return d.collectImageInfo(ctx)
	case DockerNetworkInfo:
		return d.collectNetworkInfo(ctx)
	case DockerAllContainers:
		return d.collectAllContainers(ctx, params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func (d *DockerCollector) collectContainerLogs(ctx context.Context, params Params) ([]string, error) {
	containerID := params["container_id"]
	if containerID == "" {
		return nil, fmt.Errorf("container_id parameter is required for %s", DockerContainerLogs)
	}

	out, err := runCommand(ctx, "docker", logArgs(containerID, params)...)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for container %s: %w", containerID, err)
	}

	path, err := d.writeEvidence(fmt.Sprintf("docker_logs_%s", safeName(containerID)), "log", out)
	if err != nil {
		return nil, err
	}
	logging.LogInfo("Container logs collected", map[string]string{"container": containerID})
	return []string{path}, nil
}

func (d *DockerCollector) collectContainerInspect(ctx context.Context, params Params) ([]string, error) {
	containerID := params["container_id"]
	if containerID == "" {
		return nil, fmt.Errorf("container_id parameter is required for %s", DockerContainerInspect)
	}

	out, err := runCommand(ctx, "docker", "inspect", containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", containerID, err)
	}

	path, err := d.writeEvidence(fmt.Sprintf("docker_inspect_%s", safeName(containerID)), "json", out)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (d *DockerCollector) collectImageInfo(ctx context.Context) ([]string, error) {
	out, err := runCommand(ctx, "docker", "image", "ls", "--no-trunc", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}

	path, err := d.writeEvidence("docker_images", "json", out)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (d *DockerCollector) collectNetworkInfo(ctx context.Context) ([]string, error) {
	out, err := runCommand(ctx, "docker", "network", "ls", "--no-trunc", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}

	path, err := d.writeEvidence("docker_networks", "json", out)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (d *DockerCollector) collectAllContainers(ctx context.Context, params Params) ([]string, error) {
	out, err := runCommand(ctx, "docker", "ps", "-aq", "--no-trunc")
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	var files []string
	for _, id := range strings.Fields(string(out)) {
		perContainer := Params{"container_id": id, "tail": params["tail"]}
		logs, err := d.collectContainerLogs(ctx, perContainer)
		if err != nil {
			logging.LogWarn("Skipping container logs", map[string]string{
				"container": id, "error": err.Error(),
			})
		} else {
			files = append(files, logs...)
		}
		inspect, err := d.collectContainerInspect(ctx, perContainer)
		if err != nil {
			logging.LogWarn("Skipping container inspect", map[string]string{
				"container": id, "error": err.Error(),
			})
		} else {
			files = append(files, inspect...)
		}
	}

	images, err := d.collectImageInfo(ctx)
	if err != nil {
		logging.LogWarn("Skipping image listing", map[string]string{"error": err.Error()})
	} else {
		files = append(files, images...)
	}
	networks, err := d.collectNetworkInfo(ctx)
	if err != nil {
		logging.LogWarn("Skipping network listing", map[string]string{"error": err.Error()})
	} else {
		files = append(files, networks...)
	}
	return files, nil
}

// logArgs builds the docker logs invocation, bounding it to the collection
// time window when one was configured.
func logArgs(containerID string, params Params) []string {
	tail := params["tail"]
	if tail == "" {
		tail = defaultLogTail
	}
	args := []string{"logs", "--timestamps", "--tail", tail}
	if since := params["start_time"]; since != "" {
		args = append(args, "--since", since)
	}
	if until := params["end_time"]; until != "" {
		args = append(args, "--until", until)
	}
	return append(args, containerID)
}

func (d *DockerCollector) writeEvidence(prefix, ext string, data []byte) (string, error) {
	timestamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(d.outputDir, fmt.Sprintf("%s_%s.%s", prefix, timestamp, ext))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return path, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %s", name, args[0], msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return stdout.Bytes(), nil
}

func safeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	if len(name) > 12 {
		name = name[:12]
	}
	return name
}
