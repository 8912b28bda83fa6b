//go:build windows

package main

import "syscall"

func init() {
	// Articles and vocabulary are printed as UTF-8
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	setConsoleOutputCP := kernel32.NewProc("SetConsoleOutputCP")
	setConsoleOutputCP.Call(uintptr(65001)) // 65001 is UTF-8
}
