package google

import (
	"encoding/base64"
	"encoding/json"
)

// Fallback values returned by DecodeState when the state cannot be read.
const (
	DefaultStateUsername = "default"
	UnknownStateService  = "unknown"
)

// State is carried through the OAuth consent flow in the state parameter so
// the callback can recover which workspace and service it belongs to.
// It is a correlator only and must not be trusted as an authentication token.
type State struct {
	Username string `json:"username"`
	Service  string `json:"service"`
}

// EncodeState returns the base64 JSON form of the state.
func EncodeState(st State) string {
	b, err := json.Marshal(st)
	if err != nil {
		// two string fields cannot fail to marshal
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeState never fails. Anything that does not decode to a state object
// yields {"default", "unknown"}; missing fields get the same defaults.
func DecodeState(s string) State {
	fallback := State{Username: DefaultStateUsername, Service: UnknownStateService}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return fallback
		}
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return fallback
	}
	if st.Username == "" {
		st.Username = DefaultStateUsername
	}
	if st.Service == "" {
		st.Service = UnknownStateService
	}
	return st
}
