// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

func UUIDv4NoDash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ReportObjectKey returns a unique object key for an archived report,
// e.g. "reports/<id>/report.pdf".
func ReportObjectKey(reportName string) string {
	return path.Join("reports", UUIDv4NoDash(), reportName)
}
