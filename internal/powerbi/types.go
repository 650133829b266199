package powerbi

import "time"

// Workspace is a Power BI workspace (a "group" in the API). The collection
// fields are only populated when the listing was made with $expand.
type Workspace struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Type                  string      `json:"type,omitempty"`
	State                 string      `json:"state,omitempty"`
	IsReadOnly            bool        `json:"isReadOnly,omitempty"`
	IsOnDedicatedCapacity bool        `json:"isOnDedicatedCapacity,omitempty"`
	CapacityID            string      `json:"capacityId,omitempty"`
	Users                 []GroupUser `json:"users,omitempty"`
	Reports               []Report    `json:"reports,omitempty"`
	Dashboards            []Dashboard `json:"dashboards,omitempty"`
	Datasets              []Dataset   `json:"datasets,omitempty"`
	Dataflows             []Dataflow  `json:"dataflows,omitempty"`
	Workbooks             []Workbook  `json:"workbooks,omitempty"`
}

// Dashboard is a Power BI dashboard inside a workspace.
type Dashboard struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsReadOnly  bool   `json:"isReadOnly,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
	EmbedURL    string `json:"embedUrl,omitempty"`
}

// Dataset is a Power BI dataset inside a workspace.
type Dataset struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ConfiguredBy  string `json:"configuredBy,omitempty"`
	IsRefreshable bool   `json:"isRefreshable,omitempty"`
	WebURL        string `json:"webUrl,omitempty"`
}

// Dataflow is a Power BI dataflow inside a workspace.
type Dataflow struct {
	ObjectID    string `json:"objectId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ModelURL    string `json:"modelUrl,omitempty"`
}

// Workbook is an Excel workbook hosted in a workspace.
type Workbook struct {
	Name      string `json:"name"`
	DatasetID string `json:"datasetId,omitempty"`
}

// GroupUser is a principal's access assignment on a workspace.
type GroupUser struct {
	EmailAddress  string `json:"emailAddress,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Identifier    string `json:"identifier,omitempty"`
	PrincipalType string `json:"principalType,omitempty"`
	AccessRight   string `json:"groupUserAccessRight"`
}

// App is a published Power BI app.
type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PublishedBy string    `json:"publishedBy,omitempty"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	LastUpdate  time.Time `json:"lastUpdate,omitempty"`
	UsersCount  int       `json:"usersCount,omitempty"`
}

// Report is a Power BI report, either in a workspace or inside an app.
type Report struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReportType  string `json:"reportType,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
	EmbedURL    string `json:"embedUrl,omitempty"`
	DatasetID   string `json:"datasetId,omitempty"`
	AppID       string `json:"appId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// ReportUser is a principal's access assignment on a report, as reported
// by the admin API.
type ReportUser struct {
	EmailAddress  string `json:"emailAddress,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Identifier    string `json:"identifier,omitempty"`
	PrincipalType string `json:"principalType,omitempty"`
	AccessRight   string `json:"reportUserAccessRight"`
}

// ArtifactAccess is one artifact a user can reach, from the admin
// artifactAccess API.
type ArtifactAccess struct {
	ArtifactID   string `json:"artifactId"`
	DisplayName  string `json:"displayName"`
	ArtifactType string `json:"artifactType"`
	AccessRight  string `json:"accessRight"`
	ShareType    string `json:"shareType,omitempty"`
}

// artifactAccessPage is one page of the admin artifactAccess response.
type artifactAccessPage struct {
	Entities          []ArtifactAccess `json:"ArtifactAccessEntities"`
	ContinuationURI   string           `json:"continuationUri,omitempty"`
	ContinuationToken string           `json:"continuationToken,omitempty"`
}
