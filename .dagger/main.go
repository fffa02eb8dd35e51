// Storyline CI/CD
//
// Package main runs the storyline builds, tests and checks the same way
// locally and in GitHub actions.
package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/storyline/internal/dagger"
)

// Storyline is the CI/CD module for the storyline service.
type Storyline struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".storyline", "build", "tmp"]
	source *dagger.Directory,
) *Storyline {
	return &Storyline{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm Go container with the C toolchain
// the sqlite, sqlite-vec and libsql drivers link against.
func (s *Storyline) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", s.Source)
}

// CheckGenerate fails when the committed ent code differs from what
// go generate produces.
//
// +check
func (s *Storyline) CheckGenerate(ctx context.Context) (string, error) {
	return s.goContainer("").
		WithExec([]string{"cp", "-r", "pkg/storage/ent", "/tmp/ent-before"}).
		WithExec([]string{"go", "generate", "./pkg/storage/ent/..."}).
		WithExec([]string{"diff", "-r", "/tmp/ent-before", "pkg/storage/ent"}).
		Stdout(ctx)
}

// Test runs the unit tests. Postgres specs stay skipped unless
// STORYLINE_TEST_POSTGRES_DSN is provided.
//
// +check
func (s *Storyline) Test(
	ctx context.Context,

	// Postgres DSN for the postgres storage specs
	// +optional
	postgresDSN *dagger.Secret,
) (string, error) {
	ctr := s.goContainer("")
	if postgresDSN != nil {
		ctr = ctr.WithSecretVariable("STORYLINE_TEST_POSTGRES_DSN", postgresDSN)
	}
	return ctr.
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum.
//
// +check
func (s *Storyline) CheckGoModTidy(ctx context.Context) (string, error) {
	out, err := s.goContainer("").
		WithExec([]string{"cp", "go.mod", "/tmp/go.mod"}).
		WithExec([]string{"cp", "go.sum", "/tmp/go.sum"}).
		WithExec([]string{"go", "mod", "tidy"}).
		WithExec([]string{"sh", "-c", "diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum"}).
		Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("go.mod or go.sum are not tidy, run 'go mod tidy':\n\n%s", e.Stdout)
	} else if err != nil {
		return "", fmt.Errorf("unexpected error: %w", err)
	}
	return out, nil
}
