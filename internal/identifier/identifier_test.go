package identifier

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "replaces punctuation and spaces",
			input:    "SRGH-123 A/b",
			expected: "SRGH_123_A_b",
		},
		{
			name:     "clean identifier is unchanged",
			input:    "SRGH_0012345",
			expected: "SRGH_0012345",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
		{
			name:     "path separators and dots",
			input:    "../SRGH.1\\2",
			expected: "___SRGH_1_2",
		},
		{
			name:     "unicode letters are kept",
			input:    "SRGH Müller",
			expected: "SRGH_Müller",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sanitize(tt.input)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestFileStem(t *testing.T) {
	if got := FileStem("IMG_0001", "SRGH_1"); got != "IMG_0001.SRGH_1" {
		t.Errorf("Expected IMG_0001.SRGH_1, got %s", got)
	}
	if got := FileStem("IMG_0001", ""); got != "IMG_0001" {
		t.Errorf("Expected base name alone for empty identifier, got %s", got)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		stem     string
		id       string
		expected string
	}{
		{"IMG_0001.SRGH_1", "SRGH_1", "IMG_0001"},
		{"scan.2024.SRGH_1", "SRGH_1", "scan.2024"},
		{"IMG_0001", "", "IMG_0001"},
		{"IMG_0001", "SRGH_9", "IMG_0001"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.stem, tt.id); got != tt.expected {
			t.Errorf("BaseName(%q, %q) = %q, want %q", tt.stem, tt.id, got, tt.expected)
		}
	}
}
