package models

import "time"

const (
	// MaxProfiles is the number of dependent profiles a household may hold
	MaxProfiles = 5

	// XPPerSession is the experience awarded for each verified study session
	XPPerSession = 30
)

// Profile represents a child (dependent) profile
type Profile struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Standard     string           `json:"standard"`
	School       string           `json:"school"`
	XP           int              `json:"xp"`
	Rank         Rank             `json:"level"`
	Sessions     []StudySession   `json:"sessions"`
	Recordings   []VoiceRecording `json:"recordings"`
	Certificates []Rank           `json:"certificates"`
	CreatedAt    time.Time        `json:"created_at"`
}

// HasCertificate reports whether the profile already holds a certificate for rank
func (p *Profile) HasCertificate(rank Rank) bool {
	for _, c := range p.Certificates {
		if c == rank {
			return true
		}
	}
	return false
}

// TotalMinutes sums the duration of every recorded study session
func (p *Profile) TotalMinutes() int {
	total := 0
	for _, s := range p.Sessions {
		total += s.DurationMinutes
	}
	return total
}

// Clone returns a deep copy of the profile
func (p Profile) Clone() Profile {
	out := p
	out.Sessions = append(make([]StudySession, 0, len(p.Sessions)), p.Sessions...)
	out.Recordings = append(make([]VoiceRecording, 0, len(p.Recordings)), p.Recordings...)
	out.Certificates = append(make([]Rank, 0, len(p.Certificates)), p.Certificates...)
	return out
}

// StudySession is an immutable record of a verified, credited study period
type StudySession struct {
	ID              string    `json:"id"`
	Subject         Subject   `json:"subject"`
	DurationMinutes int       `json:"duration"`
	CompletedAt     time.Time `json:"timestamp"`
	XPEarned        int       `json:"xp_earned"`
}

// VoiceRecording is a homework explanation recorded by a child
type VoiceRecording struct {
	ID        string    `json:"id"`
	Subject   Subject   `json:"subject"`
	CreatedAt time.Time `json:"date"`
	AudioRef  string    `json:"audio_url"`
}
