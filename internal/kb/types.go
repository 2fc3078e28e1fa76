package kb

// Procedure is a repair procedure stored in the knowledge base.
type Procedure struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	System          string   `yaml:"system"` // brakes, engine, transmission, ...
	Make            string   `yaml:"make"`
	Model           string   `yaml:"model"`
	Summary         string   `yaml:"summary"`
	Steps           []string `yaml:"steps"`
	Tools           []string `yaml:"tools"`
	DurationMinutes int      `yaml:"duration_minutes"`
	Difficulty      string   `yaml:"difficulty"` // easy, moderate, hard
}

// Match pairs a procedure with its similarity score from a search.
type Match struct {
	Procedure  Procedure
	Similarity float32
}

// Filter narrows search results by metadata fields.
type Filter struct {
	System *string
	Make   *string
	Model  *string
}
