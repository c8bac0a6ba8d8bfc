package catalog

// Response is the content of one deceptive popup: what it says and how its
// two affordances are labelled. The act control is the bait; the close
// control is always safe.
type Response struct {
	Title      string `yaml:"title" json:"title"`
	Body       string `yaml:"body" json:"body"`
	ActLabel   string `yaml:"act_label" json:"act_label"`
	CloseLabel string `yaml:"close_label" json:"close_label"`
}

// GroupResponse ties a response to a decoy group key.
type GroupResponse struct {
	Group    string   `yaml:"group"`
	Response Response `yaml:"response"`
}

// LabelResponse ties a response to one exact element label.
type LabelResponse struct {
	Label    string   `yaml:"label"`
	Response Response `yaml:"response"`
}

// ResponseSet maps clicked decoys to popup content. Pure data; the cyclic
// fallback cursor lives with the popup manager so the set stays immutable.
type ResponseSet struct {
	ByLabel   []LabelResponse `yaml:"by_label"`
	Groups    []GroupResponse `yaml:"groups"`
	Fallbacks []Response      `yaml:"fallbacks"`
}

// Resolve picks popup content for a clicked decoy. Resolution order: exact
// label entry, first entry for the decoy's group, then the fallback at the
// caller's cyclic cursor. usedFallback reports whether the cursor was
// consumed.
func (rs *ResponseSet) Resolve(label, groupKey string, fallbackCursor int) (r Response, usedFallback bool) {
	for _, lr := range rs.ByLabel {
		if lr.Label == label {
			return lr.Response, false
		}
	}
	if groupKey != "" {
		for _, gr := range rs.Groups {
			if gr.Group == groupKey {
				return gr.Response, false
			}
		}
	}
	if len(rs.Fallbacks) == 0 {
		return Response{}, false
	}
	return rs.Fallbacks[fallbackCursor%len(rs.Fallbacks)], true
}
