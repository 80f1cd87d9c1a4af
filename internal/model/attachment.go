package model

// NotApplicable is written in place of any field whose parent record is absent.
const NotApplicable = "(n/a)"

// Attachment is a file attached to an artifact or a test case result.
// Artifact and TestCaseResult are both optional and are not guaranteed to be
// mutually exclusive.
type Attachment struct {
	Ref            string          `mapstructure:"_ref" json:"ref"`
	ObjectID       int64           `mapstructure:"ObjectID" json:"object_id"`
	Name           string          `mapstructure:"Name" json:"name"`
	ContentType    string          `mapstructure:"ContentType" json:"content_type"`
	Description    string          `mapstructure:"Description" json:"description"`
	Size           int64           `mapstructure:"Size" json:"size"`
	Artifact       *Artifact       `mapstructure:"Artifact" json:"artifact,omitempty"`
	TestCaseResult *TestCaseResult `mapstructure:"TestCaseResult" json:"test_case_result,omitempty"`
	User           *User           `mapstructure:"User" json:"user,omitempty"`
	Content        *ContentRef     `mapstructure:"Content" json:"content,omitempty"`
}

// Artifact is a tracked work item such as a defect or user story.
type Artifact struct {
	Ref            string `mapstructure:"_ref" json:"ref"`
	FormattedID    string `mapstructure:"FormattedID" json:"formatted_id"`
	CreationDate   string `mapstructure:"CreationDate" json:"creation_date"`
	LastUpdateDate string `mapstructure:"LastUpdateDate" json:"last_update_date"`
}

// TestCaseResult records one execution of a test case.
type TestCaseResult struct {
	Ref      string    `mapstructure:"_ref" json:"ref"`
	Date     string    `mapstructure:"Date" json:"date"`
	Build    string    `mapstructure:"Build" json:"build"`
	TestCase *TestCase `mapstructure:"TestCase" json:"test_case,omitempty"`
	TestSet  *TestSet  `mapstructure:"TestSet" json:"test_set,omitempty"`
}

// TestCase is the test a TestCaseResult was recorded against.
type TestCase struct {
	Ref         string `mapstructure:"_ref" json:"ref"`
	FormattedID string `mapstructure:"FormattedID" json:"formatted_id"`
}

// TestSet groups test cases scheduled together.
type TestSet struct {
	Ref         string `mapstructure:"_ref" json:"ref"`
	FormattedID string `mapstructure:"FormattedID" json:"formatted_id"`
}

// User is the owner of an attachment.
type User struct {
	Ref          string `mapstructure:"_ref" json:"ref"`
	EmailAddress string `mapstructure:"EmailAddress" json:"email_address"`
	DisplayName  string `mapstructure:"DisplayName" json:"display_name"`
}

// ContentRef points at the AttachmentContent object holding the payload.
// Encoded carries the base64 payload once it has been fetched.
type ContentRef struct {
	Ref     string `mapstructure:"_ref" json:"ref"`
	Encoded string `mapstructure:"Content" json:"-"`
}

// FormattedIDOrNA returns the artifact's FormattedID, or NotApplicable.
func (a *Artifact) FormattedIDOrNA() string {
	if a == nil {
		return NotApplicable
	}
	return a.FormattedID
}

// TestCaseFormattedID returns the FormattedID of the result's test case,
// or an empty string when the test case was not returned.
func (r *TestCaseResult) TestCaseFormattedID() string {
	if r == nil || r.TestCase == nil {
		return ""
	}
	return r.TestCase.FormattedID
}
