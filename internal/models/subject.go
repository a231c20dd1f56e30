package models

import "fmt"

// Subject is a study subject from the fixed subject list
type Subject string

const (
	SubjectMathematics Subject = "Mathematics"
	SubjectScience     Subject = "Science"
	SubjectEnglish     Subject = "English"
	SubjectHistory     Subject = "History"
	SubjectGeography   Subject = "Geography"
	SubjectArt         Subject = "Art"
	SubjectCoding      Subject = "Coding"
	SubjectMusic       Subject = "Music"
)

// Subjects is the enumerated subject list offered by the study timer
var Subjects = []Subject{
	SubjectMathematics, SubjectScience, SubjectEnglish, SubjectHistory,
	SubjectGeography, SubjectArt, SubjectCoding, SubjectMusic,
}

// ParseSubject validates a subject label against the fixed list
func ParseSubject(s string) (Subject, error) {
	for _, subject := range Subjects {
		if string(subject) == s {
			return subject, nil
		}
	}
	return "", fmt.Errorf("unknown subject %q", s)
}
