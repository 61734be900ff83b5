// This file is a helper for running tests against a real MariaDB instance.
// It is used by the standalone runner in cmd/testcontainers and by the
// integration tests. Expects environment variables to be loaded from .env
// files.
//
// Copyright (c) 2026 LocalForge contributors (https://github.com/localforge)
//
// This file is part of entitydb.
// entitydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// entitydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with entitydb.
// If not, see <https://www.gnu.org/licenses/>.

package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localforge/entitydb/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mariadbImage = "mariadb:11.4"
	dbReadyWait  = 90 * time.Second
)

// TestContainers holds the containerized integration environment.
type TestContainers struct {
	Network     *testcontainers.DockerNetwork
	DBContainer testcontainers.Container

	// DSN reaches the MariaDB container from the host, go-sql-driver form.
	DSN string

	DBHost string
	DBPort string
}

// Terminate tears the environment down. Safe on a partially-created set.
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MariaDB: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// EnsureDockerAvailable pings the Docker daemon. Tests call it to skip
// cleanly on machines without Docker.
func EnsureDockerAvailable(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()
	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// CreateAllTestContainers starts the MariaDB container with the embedded DDL
// applied, on its own network, and waits until the database accepts
// connections. t may be nil when called from the standalone runner.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	dbName := getEnvDefault("DB_DATABASE", "entitydb")
	dbUser := getEnvDefault("DB_USER", "entitydb")
	dbPassword := getEnvDefault("DB_PASSWORD", "entitydb-test")
	rootPassword := uuid.New().String()

	net, err := network.New(ctx)
	if err != nil {
		return tc, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = net

	req := testcontainers.ContainerRequest{
		Image: mariadbImage,
		Env: map[string]string{
			"MARIADB_DATABASE":      dbName,
			"MARIADB_USER":          dbUser,
			"MARIADB_PASSWORD":      dbPassword,
			"MARIADB_ROOT_PASSWORD": rootPassword,
		},
		Files: []testcontainers.ContainerFile{
			{
				Reader:            strings.NewReader(data.InitdbMariaDBTables),
				ContainerFilePath: "/docker-entrypoint-initdb.d/002-ddl-tables.sql",
				FileMode:          0o644,
			},
			{
				Reader:            strings.NewReader(data.InitdbMariaDBPrivileges),
				ContainerFilePath: "/docker-entrypoint-initdb.d/003-ddl-privileges.sql",
				FileMode:          0o644,
			},
		},
		Networks:       []string{net.Name},
		NetworkAliases: map[string][]string{net.Name: {"db"}},
		ExposedPorts:   []string{"3306/tcp"},
		WaitingFor:     wait.ForListeningPort(nat.Port("3306/tcp")).WithStartupTimeout(dbReadyWait),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return tc, fmt.Errorf("failed to start MariaDB: %w", err)
	}
	tc.DBContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return tc, err
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port("3306/tcp"))
	if err != nil {
		return tc, err
	}

	tc.DBHost = host
	tc.DBPort = mappedPort.Port()
	tc.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbUser, dbPassword, host, mappedPort.Port(), dbName)

	if err := waitForDB(tc.DSN); err != nil {
		return tc, err
	}

	logMessage(t, "MariaDB ready at %s:%s", host, mappedPort.Port())
	return tc, nil
}

// CleanupDanglingImages removes untagged images left behind by repeated
// container runs. Best effort, used by the standalone runner on shutdown.
func CleanupDanglingImages(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()

	dangling := filters.NewArgs(filters.Arg("dangling", "true"))
	images, err := cli.ImageList(ctx, image.ListOptions{Filters: dangling})
	if err != nil {
		return err
	}
	for _, img := range images {
		if _, err := cli.ImageRemove(ctx, img.ID, image.RemoveOptions{PruneChildren: true}); err != nil {
			log.Printf("Failed to remove image %s: %v", img.ID, err)
		}
	}
	return nil
}

// waitForDB polls until the database answers a real query; the listening
// port opens before initdb scripts finish.
func waitForDB(dsn string) error {
	deadline := time.Now().Add(dbReadyWait)
	var lastErr error
	for time.Now().Before(deadline) {
		db, err := sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("database not ready after %s: %w", dbReadyWait, lastErr)
}

func getEnvDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func logMessage(t *testing.T, format string, args ...interface{}) {
	if t != nil {
		t.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
