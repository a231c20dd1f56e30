package models

// GuardianCredential is the household's parent identity
type GuardianCredential struct {
	PIN                string `json:"pin"`
	FaceImage          []byte `json:"face_data,omitempty"`
	FaceMIMEType       string `json:"face_mime_type,omitempty"`
	FaceRegistered     bool   `json:"face_registered"`
	OnboardingComplete bool   `json:"onboarding_complete"`
}

// AppState is the root aggregate persisted as a whole after every mutation
type AppState struct {
	Profiles        []Profile          `json:"children"`
	ActiveProfileID string             `json:"active_child_id,omitempty"`
	Guardian        GuardianCredential `json:"parent_config"`
}

// NewAppState returns an empty household
func NewAppState() *AppState {
	return &AppState{Profiles: []Profile{}}
}

// Clone returns a deep copy so callers cannot alias history
func (s *AppState) Clone() *AppState {
	if s == nil {
		return nil
	}
	out := &AppState{
		Profiles:        make([]Profile, len(s.Profiles)),
		ActiveProfileID: s.ActiveProfileID,
		Guardian:        s.Guardian,
	}
	out.Guardian.FaceImage = append([]byte(nil), s.Guardian.FaceImage...)
	for i, p := range s.Profiles {
		out.Profiles[i] = p.Clone()
	}
	return out
}

// FindProfile returns the index of the profile with the given ID, or -1
func (s *AppState) FindProfile(id string) int {
	for i := range s.Profiles {
		if s.Profiles[i].ID == id {
			return i
		}
	}
	return -1
}
