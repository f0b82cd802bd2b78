//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var LocalBin = filepath.Join(os.Getenv("PWD"), "bin")

func binaryWithExt(name string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("%s.exe", name)
	}
	return name
}

func makeLocalBin() error {
	return os.MkdirAll(LocalBin, os.ModePerm)
}

// Build compiles rtchains into ./bin.
func Build() error {
	mg.Deps(makeLocalBin)
	return sh.RunV("go", "build", "-o", filepath.Join(LocalBin, binaryWithExt("rtchains")), "./cmd/rtchains")
}

// Tests runs the unit tests and writes a coverage profile.
func Tests() error {
	timeTaken := time.Now()
	err := sh.RunV("go", "test", "-coverprofile", "coverage.out", "./internal/...", "./cmd/...")
	fmt.Println("Time to run tests:", time.Since(timeTaken))
	return err
}

// Figure9 generates the utilization sweep of the synthetic evaluation and runs the solver on it.
func Figure9() error {
	mg.Deps(Build)
	rtchains := filepath.Join(LocalBin, binaryWithExt("rtchains"))
	if err := sh.RunV(rtchains, "experiment", "--specs", "experiments/*.yaml"); err != nil {
		return err
	}
	return sh.RunV(rtchains, "solve", "out", "--results", "out/results.csv")
}

// Clean removes build output.
func Clean() {
	fmt.Println("Cleaning...")
	for _, path := range []string{"bin", "coverage.out"} {
		os.RemoveAll(path)
	}
}
