package service

import (
	"sort"
	"strings"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

var warningSeverity = map[constants.CapacityWarningKind]int{
	constants.CapacityOver:         0,
	constants.CapacityNoCapacity:   1,
	constants.CapacityUnknownOwner: 2,
	constants.CapacityNear:         3,
}

// CapacityReport is the per-owner workload and the warnings derived from it.
type CapacityReport struct {
	Loads    []models.OwnerLoad
	Warnings []models.CapacityWarning
}

// ComputeCapacity sums open (not done) initiative effort per owner and flags owners
// at or over capacity. Owner names match case-insensitively after trimming.
// Loads follow the owner list order; warnings are sorted by severity then owner.
func ComputeCapacity(owners []models.Owner, initiatives []models.Initiative, warnRatio float64) CapacityReport {
	if warnRatio <= 0 {
		warnRatio = constants.DefaultCapacityWarnRatio
	}

	index := make(map[string]int, len(owners))
	loads := make([]models.OwnerLoad, len(owners))
	open := make([][]string, len(owners))
	for i, o := range owners {
		index[ownerKey(o.Name)] = i
		loads[i] = models.OwnerLoad{Owner: o.Name, CapacityHours: o.CapacityHours}
	}

	unknown := map[string]*models.CapacityWarning{}
	var unknownOrder []string
	for _, in := range initiatives {
		if in.Status == constants.InitiativeDone {
			continue
		}
		key := ownerKey(in.Owner)
		if i, ok := index[key]; ok {
			loads[i].CommittedHours += in.EffortHours
			open[i] = append(open[i], in.Key)
			continue
		}
		w, ok := unknown[key]
		if !ok {
			w = &models.CapacityWarning{Kind: constants.CapacityUnknownOwner, Owner: strings.TrimSpace(in.Owner)}
			unknown[key] = w
			unknownOrder = append(unknownOrder, key)
		}
		w.CommittedHours += in.EffortHours
		w.Initiatives = append(w.Initiatives, in.Key)
	}

	var warnings []models.CapacityWarning
	for i := range loads {
		l := &loads[i]
		l.CommittedHours = Round2(l.CommittedHours)
		if l.CapacityHours > 0 {
			l.Utilisation = Round2(l.CommittedHours / l.CapacityHours)
		}
		w := models.CapacityWarning{
			Owner:          l.Owner,
			CommittedHours: l.CommittedHours,
			CapacityHours:  l.CapacityHours,
			Utilisation:    l.Utilisation,
			Initiatives:    open[i],
		}
		switch {
		case l.CapacityHours <= 0 && l.CommittedHours > 0:
			w.Kind = constants.CapacityNoCapacity
		case l.CapacityHours <= 0:
			continue
		case l.CommittedHours/l.CapacityHours > 1.0:
			w.Kind = constants.CapacityOver
		case l.CommittedHours/l.CapacityHours >= warnRatio:
			w.Kind = constants.CapacityNear
		default:
			continue
		}
		warnings = append(warnings, w)
	}
	for _, key := range unknownOrder {
		w := unknown[key]
		w.CommittedHours = Round2(w.CommittedHours)
		warnings = append(warnings, *w)
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		si, sj := warningSeverity[warnings[i].Kind], warningSeverity[warnings[j].Kind]
		if si != sj {
			return si < sj
		}
		return strings.ToLower(warnings[i].Owner) < strings.ToLower(warnings[j].Owner)
	})
	return CapacityReport{Loads: loads, Warnings: warnings}
}

func ownerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
