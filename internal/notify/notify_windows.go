//go:build windows

package notify

// TODO: implement with Windows toast notifications via PowerShell

func alertAvailable() bool { return false }

func sendAlert(title, body string) error { return nil }
