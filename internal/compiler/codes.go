package compiler

import "github.com/Norgate-AV/featprobe/internal/toolchain"

// exitCodes maps each flavor's documented exit statuses to descriptions.
var exitCodes = map[toolchain.Flavor]map[int]string{
	toolchain.Rustc: {
		0:   "Success",
		1:   "Compilation failed",
		101: "Internal compiler error",
	},
	toolchain.CC: {
		0: "Success",
		1: "Compilation failed",
		4: "Internal compiler error",
	},
	toolchain.Go: {
		0: "Success",
		1: "Build failed",
		2: "Usage error",
	},
}

// crashCodes are exit statuses that mean the compiler itself broke.
var crashCodes = map[toolchain.Flavor][]int{
	toolchain.Rustc: {101},
	toolchain.CC:    {4},
}

// IsSuccess reports whether code indicates a clean compile.
func IsSuccess(code int) bool {
	return code == 0
}

// IsCrash reports whether code means the compiler crashed rather than
// rejected its input. Statuses above 128 are what a wrapper shell reports
// for a child killed by signal (128+N).
func IsCrash(flavor toolchain.Flavor, code int) bool {
	if code > 128 && code <= 128+64 {
		return true
	}

	for _, c := range crashCodes[flavor] {
		if c == code {
			return true
		}
	}

	return false
}

// GetErrorMessage returns the description of code for flavor.
func GetErrorMessage(flavor toolchain.Flavor, code int) string {
	if msg, ok := exitCodes[flavor][code]; ok {
		return msg
	}

	if code > 128 && code <= 128+64 {
		return "Terminated by signal"
	}

	return "Unknown error"
}
