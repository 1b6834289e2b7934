// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/detect"
)

// ReportView converts a report to its display form. Checks appear in
// detector display order; disabled detectors are left out.
func ReportView(rep guardian.Report, name string) ux.ReportView {
	if name == "" {
		name = string(rep.Document)
	}
	v := ux.ReportView{Document: name, CheckedAt: rep.CheckedAt}

	for _, kind := range detect.Kinds() {
		if err, ok := rep.Faults[kind]; ok {
			v.Checks = append(v.Checks, ux.CheckLine{Name: string(kind), Fault: err.Error()})
			continue
		}
		res, ok := rep.Results[kind]
		if !ok {
			continue
		}
		line := ux.CheckLine{
			Name:      string(kind),
			Count:     res.Count,
			Truncated: res.Truncated,
			Offenders: make([]ux.OffenderLine, 0, len(res.Offenders)),
		}
		for _, o := range res.Offenders {
			line.Offenders = append(line.Offenders, ux.OffenderLine{Name: o.Name, Reason: o.Reason})
		}
		v.Checks = append(v.Checks, line)
	}
	return v
}
