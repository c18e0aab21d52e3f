package domain

import (
	"encoding/json"
	"errors"
)

// DecodeLesson parses raw lesson JSON, checking it against the lesson schema
// and the semantic rules in Validate. Every failure is a *ContentDefectError.
func DecodeLesson(raw []byte) (LessonDocument, error) {
	if err := validateSchema(raw); err != nil {
		return LessonDocument{}, &ContentDefectError{LessonID: peekID(raw), Problems: []string{err.Error()}}
	}
	var doc LessonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		var defect *ContentDefectError
		if errors.As(err, &defect) {
			return LessonDocument{}, defect
		}
		return LessonDocument{}, &ContentDefectError{LessonID: peekID(raw), Problems: []string{err.Error()}}
	}
	if err := Validate(doc); err != nil {
		return LessonDocument{}, err
	}
	return doc, nil
}

// EncodeLesson is the inverse of DecodeLesson.
func EncodeLesson(doc LessonDocument) ([]byte, error) {
	return json.Marshal(doc)
}

func peekID(raw []byte) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}
