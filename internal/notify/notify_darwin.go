//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

func alertAvailable() bool {
	_, err := exec.LookPath("osascript")
	return err == nil
}

func sendAlert(title, body string) error {
	script := fmt.Sprintf("display notification %q with title %q",
		strings.ReplaceAll(body, `"`, `'`),
		strings.ReplaceAll(title, `"`, `'`))
	return exec.Command("osascript", "-e", script).Run()
}
