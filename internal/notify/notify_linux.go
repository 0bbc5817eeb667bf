//go:build linux

package notify

import "os/exec"

func alertAvailable() bool {
	_, err := exec.LookPath("notify-send")
	return err == nil
}

func sendAlert(title, body string) error {
	return exec.Command("notify-send", "--app-name=DriverCopilot", title, body).Run()
}
