package notes

// FilterAll is the sentinel subject/tag value that disables a filter.
const FilterAll = "All"

// MaxContentChars is the client-side truncation bound for note content.
// The store itself does not enforce it.
const MaxContentChars = 5000

// Subject is a course code offered by the client.
type Subject struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog is the fixed set of subjects and tags known to clients.
type Catalog struct {
	Subjects []Subject `json:"subjects"`
	Tags     []string  `json:"tags"`
}

var defaultSubjects = []Subject{
	{Code: "CS333", Name: "Data Analytics"},
	{Code: "CS351L", Name: "Software Engineering Laboratory"},
	{Code: "CS352", Name: "Software Engineering Lecture"},
	{Code: "CS373", Name: "Parallel and Distributed Computing"},
	{Code: "CSE1", Name: "Cybersecurity"},
	{Code: "CSE2", Name: "Project Management"},
	{Code: "CC311L", Name: "Web Development Laboratory"},
	{Code: "CC312", Name: "Web Development Lecture"},
	{Code: "CS313", Name: "Information Assurance and Security"},
}

var defaultTags = []string{"Quiz", "Lesson 1", "Lesson 2", "Midterms", "Finals"}

// DefaultCatalog returns a copy of the built-in subject and tag lists.
func DefaultCatalog() Catalog {
	return Catalog{
		Subjects: append([]Subject(nil), defaultSubjects...),
		Tags:     append([]string(nil), defaultTags...),
	}
}

// HasSubject reports whether code is a known subject.
func (c Catalog) HasSubject(code string) bool {
	for _, subject := range c.Subjects {
		if subject.Code == code {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is a known tag.
func (c Catalog) HasTag(tag string) bool {
	for _, known := range c.Tags {
		if known == tag {
			return true
		}
	}
	return false
}
