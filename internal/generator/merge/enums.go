package merge

import (
	"fmt"
	"sort"
)

// mergeEnums unifies enum declarations across revisions. Identity matches
// on the local name; values unify by number, with the newest revision
// naming each constant. Renames and renumbers are diagnostics, never fatal:
// enum numbers travel on the wire, names do not.
func (e *Engine) mergeEnums(merged *MergedSchema) []*MergedEnum {
	seen := make(map[string]bool)
	var locals []string
	for _, rev := range e.set.Revisions {
		for _, en := range rev.Enums {
			if !seen[en.Local] {
				seen[en.Local] = true
				locals = append(locals, en.Local)
			}
		}
	}

	out := make([]*MergedEnum, 0, len(locals))
	for _, local := range locals {
		me := &MergedEnum{Name: local}

		type valueState struct {
			name      string
			revisions []string
		}
		byNumber := make(map[int32]*valueState)
		var numbers []int32
		nameToNumbers := make(map[string][]int32)

		for _, rev := range e.set.Revisions {
			en, ok := rev.EnumByLocal(local)
			if !ok {
				continue
			}
			me.Revisions = append(me.Revisions, rev.Tag)
			for _, v := range en.Values {
				st := byNumber[v.Number]
				if st == nil {
					st = &valueState{name: v.Name}
					byNumber[v.Number] = st
					numbers = append(numbers, v.Number)
				} else if st.name != v.Name {
					merged.Diagnostics = append(merged.Diagnostics, Diagnostic{
						Kind:        "enum_value_renamed",
						MessageName: local,
						Field:       v.Name,
						Revisions:   []string{st.revisions[len(st.revisions)-1], rev.Tag},
						Detail: fmt.Sprintf("enum number %d renamed from %s to %s; the newest name wins",
							v.Number, st.name, v.Name),
					})
					st.name = v.Name
				}
				st.revisions = append(st.revisions, rev.Tag)
				if !containsInt32(nameToNumbers[v.Name], v.Number) {
					nameToNumbers[v.Name] = append(nameToNumbers[v.Name], v.Number)
				}
			}
		}

		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		for _, num := range numbers {
			st := byNumber[num]
			me.Values = append(me.Values, MergedEnumValue{
				Name:      st.name,
				Number:    num,
				Revisions: st.revisions,
			})
		}

		// A constant keeping its name while moving numbers changes wire
		// meaning silently; worth a diagnostic even though merging by
		// number already does the right thing.
		var renumbered []string
		for name, nums := range nameToNumbers {
			if len(nums) > 1 {
				renumbered = append(renumbered, name)
			}
		}
		sort.Strings(renumbered)
		for _, name := range renumbered {
			merged.Diagnostics = append(merged.Diagnostics, Diagnostic{
				Kind:        "enum_value_renumbered",
				MessageName: local,
				Field:       name,
				Revisions:   me.Revisions,
				Detail:      fmt.Sprintf("enum constant %s is declared with different numbers across revisions", name),
			})
		}

		out = append(out, me)
	}
	return out
}

func containsInt32(list []int32, v int32) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
