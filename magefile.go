//go:build mage

package main

import (
	"github.com/magefile/mage/sh"
)

// Runs go mod download and builds the airspotter binary.
func Build() error {
	if err := sh.Run("go", "mod", "download"); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", "airspotter", "./cmd/airspotter")
}

// Runs the test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Build a docker image for amd64
func BuildDockerAMD() error {
	return sh.RunV("docker", "build", "-t", "airspotter:latest", "-f", "cmd/airspotter/Dockerfile", ".")
}

// Build a docker image for arm32
func ARM32Image() error {
	return sh.RunV("docker", "build", "--build-arg", "TARGET_PLATFORM=linux/arm/v7", "--build-arg", "COMPILE_GOARCH=arm", "--build-arg", "COMPILE_GOARM=7", "-t", "airspotter:latest", "-f", "cmd/airspotter/Dockerfile", ".")
}
