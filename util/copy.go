// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"io"
	"os"
	"path/filepath"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
)

// CopyFile copies a single file from src to dst, preserving the source
// file's permission bits. Used to stage a CPUID dump or a topology XML
// document into a machine's working directory without disturbing the
// original.
func CopyFile(src string, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		cclog.Errorf("CopyFile() error: %v", err)
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		cclog.Errorf("CopyFile() error: %v", err)
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		cclog.Errorf("CopyFile() error: %v", err)
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		cclog.Errorf("CopyFile() error: %v", err)
		return err
	}

	return nil
}

// CopyDir recursively copies the directory tree rooted at src into dst,
// creating dst (and any intermediate directories) as needed.
func CopyDir(src string, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		cclog.Errorf("CopyDir() error: %v", err)
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		cclog.Errorf("CopyDir() error: %v", err)
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		cclog.Errorf("CopyDir() error: %v", err)
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}
