/*
 * Copyright 2022 Google LLC.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/opendataval/opendataval/port/go/utils/test"
)

func TestWriteReadMatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "a.yaml")
	if err := WriteFile(ctx, path, []byte("name: x\n")); err != nil {
		t.Fatal(err)
	}
	data, err := ReadFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, string(data), "name: x\n", "")

	matches, err := Match(ctx, filepath.Join(dir, "sub", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	test.CheckEq(t, matches, []string{path}, "")
}

func TestReadMissing(t *testing.T) {
	if _, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadFile(ctx, "any"); err == nil {
		t.Fatal("expected an error")
	}
}
