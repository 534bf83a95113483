package labeler

// Plan computes the label changes for a classified thread.
//
// The result and processed labels are added when missing. With resorting,
// every current label in known other than the result is removed. Labels
// outside known are never touched, so a label dropped from the
// configuration since an earlier run stays on the thread.
func Plan(current []string, result string, known []string, processed string, resorting bool) (add, remove []string) {
	has := make(map[string]bool, len(current))
	for _, l := range current {
		has[l] = true
	}

	for _, l := range []string{result, processed} {
		if l != "" && !has[l] {
			add = append(add, l)
			has[l] = true
		}
	}

	if !resorting {
		return add, nil
	}

	seen := make(map[string]bool, len(known))
	for _, l := range known {
		if seen[l] || l == result || l == processed {
			continue
		}
		seen[l] = true
		for _, c := range current {
			if c == l {
				remove = append(remove, l)
				break
			}
		}
	}
	return add, remove
}
