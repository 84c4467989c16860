// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package project finds the project the working directory is linked to.
//
// A directory is linked when it (or a parent) contains .bazaar/project.json.
// BAZAAR_PROJECT_ID and BAZAAR_ORG_ID override the file.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	bazaarerrors "github.com/tombee/bazaar/pkg/errors"
)

const (
	// LinkDir is the directory holding link metadata.
	LinkDir = ".bazaar"

	// LinkFile is the link metadata file inside LinkDir.
	LinkFile = "project.json"
)

// Link identifies a linked project.
type Link struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName,omitempty"`
	OrgID       string `json:"orgId,omitempty"`

	// Dir is the directory containing LinkDir. Empty for env-based links.
	Dir string `json:"-"`
}

// Finder looks up the linked project starting from a directory.
type Finder struct {
	// Start is the directory the search begins in (default: working directory)
	Start string

	// Getenv reads environment overrides (default: os.Getenv)
	Getenv func(string) string
}

// Find returns the linked project, or nil when the directory is not linked.
// A link file that exists but cannot be read or parsed is an error.
func (f Finder) Find() (*Link, error) {
	getenv := f.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if id := getenv("BAZAAR_PROJECT_ID"); id != "" {
		return &Link{ProjectID: id, ProjectName: id, OrgID: getenv("BAZAAR_ORG_ID")}, nil
	}

	dir := f.Start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, bazaarerrors.Wrap(err, "resolving working directory")
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		link, err := readLink(dir)
		if err != nil || link != nil {
			return link, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func readLink(dir string) (*Link, error) {
	path := filepath.Join(dir, LinkDir, LinkFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, bazaarerrors.Wrapf(err, "reading project link %s", path)
	}

	var link Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("project link %s is corrupt: %w", path, err)
	}
	if link.ProjectID == "" {
		return nil, fmt.Errorf("project link %s has no projectId", path)
	}
	if link.ProjectName == "" {
		link.ProjectName = link.ProjectID
	}
	link.Dir = dir
	return &link, nil
}

// Write links dir to the project, creating LinkDir as needed.
func Write(dir string, link Link) error {
	if link.ProjectID == "" {
		return errors.New("project id is required")
	}
	linkDir := filepath.Join(dir, LinkDir)
	if err := os.MkdirAll(linkDir, 0o755); err != nil {
		return bazaarerrors.Wrapf(err, "creating %s", linkDir)
	}
	data, err := json.MarshalIndent(link, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a reader never sees a half-written link.
	path := filepath.Join(linkDir, LinkFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return bazaarerrors.Wrapf(err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return bazaarerrors.Wrapf(err, "replacing %s", path)
	}
	return nil
}
