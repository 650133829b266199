package powerbi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// maxAccessPages caps continuation following so a misbehaving API cannot
// loop the client forever.
const maxAccessPages = 100

// GetUserArtifactAccess returns every artifact a user can reach, following
// the admin API's continuation pages until exhausted.
// GET /admin/users/{id}/artifactAccess
func (c *Client) GetUserArtifactAccess(ctx context.Context, userID string) ([]ArtifactAccess, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	path := "/admin/users/" + url.PathEscape(userID) + "/artifactAccess"

	var entities []ArtifactAccess
	nextURL := c.baseURL + path

	for page := 0; page < maxAccessPages; page++ {
		body, err := c.doURL(ctx, http.MethodGet, nextURL, path)
		if err != nil {
			return nil, fmt.Errorf("listing artifact access of user %s: %w", userID, err)
		}

		var result artifactAccessPage
		decodeErr := json.NewDecoder(body).Decode(&result)
		body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding artifact access of user %s: %w", userID, decodeErr)
		}

		entities = append(entities, result.Entities...)

		if result.ContinuationURI == "" || len(result.Entities) == 0 {
			return entities, nil
		}
		nextURL = result.ContinuationURI
	}

	return entities, fmt.Errorf("artifact access of user %s: continuation did not terminate after %d pages",
		userID, maxAccessPages)
}
