package models

import (
	"strings"
	"testing"
)

func TestEmbeddingTextLayout(t *testing.T) {
	user := User{
		DisplayName:   "Ada",
		Profession:    "Engineer",
		Hobbies:       []string{"chess", "climbing"},
		Bio:           "Building things.",
		AcademicLevel: "MSc",
		FieldOfStudy:  "Mathematics",
	}

	text := user.EmbeddingText()
	lines := strings.Split(text, "\n")

	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d", len(lines))
	}
	if lines[0] != "Ada" || lines[2] != "chess, climbing" || lines[5] != "Mathematics" {
		t.Errorf("Unexpected line layout: %q", lines)
	}
}

func TestEmbeddingTextEmptyFieldsStayBlank(t *testing.T) {
	user := User{DisplayName: "Ada"}

	lines := strings.Split(user.EmbeddingText(), "\n")

	if len(lines) != 6 {
		t.Fatalf("Expected stable 6-line layout, got %d lines", len(lines))
	}
	for i := 1; i < 6; i++ {
		if lines[i] != "" {
			t.Errorf("Expected blank line %d, got %q", i, lines[i])
		}
	}
}
