// Package compose knows the docker compose side of stackrun: it parses the
// orchestration descriptor (services, published ports, named volumes, the
// project name) with gopkg.in/yaml.v3 and builds the docker / docker compose
// command lines that stack operations execute.
//
// Command builders return runner.Command values and never execute anything
// themselves.
package compose
