package collector

import "os/exec"

// Capabilities records which provider tooling is present on the host.
// Resolved once at process startup and passed to whoever needs it; the
// absence of a tool is a soft limitation, not an error.
type Capabilities struct {
	Docker  bool
	Kubectl bool
}

// DetectCapabilities probes PATH for the provider binaries.
func DetectCapabilities() Capabilities {
	return Capabilities{
		Docker:  lookPath("docker"),
		Kubectl: lookPath("kubectl"),
	}
}

func lookPath(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
