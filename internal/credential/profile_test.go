package credential

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_UnmarshalCapturesExtraFields(t *testing.T) {
	data := []byte(`{
		"id": 7,
		"email": "d@e.edu",
		"name": "D",
		"role": "department_head",
		"campus": "West",
		"department": "Mathematics",
		"username": "d.e",
		"avatar_url": "https://img.example/7.png",
		"title": "Professor"
	}`)

	var profile UserProfile
	require.NoError(t, json.Unmarshal(data, &profile))

	assert.Equal(t, int64(7), profile.ID)
	assert.Equal(t, "department_head", profile.Role)
	assert.Equal(t, map[string]any{
		"avatar_url": "https://img.example/7.png",
		"title":      "Professor",
	}, profile.Extra)
}

func TestUserProfile_MarshalRoundTripsExtraFields(t *testing.T) {
	profile := UserProfile{
		ID:    7,
		Email: "d@e.edu",
		Role:  "admin",
		Extra: map[string]any{"title": "Professor"},
	}

	data, err := json.Marshal(profile)
	require.NoError(t, err)

	var decoded UserProfile
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, profile, decoded)
}

func TestUserProfile_MergeOverwritesFieldLevel(t *testing.T) {
	stored := UserProfile{
		ID:         1,
		Email:      "a@b.com",
		Name:       "A",
		Role:       "instructor",
		Campus:     "North",
		Department: "Science",
		Extra:      map[string]any{"title": "Lecturer", "office": "N-101"},
	}

	fresh := UserProfile{
		ID:    1,
		Email: "a@b.com",
		Name:  "A. Barnes",
		Role:  "instructor",
		// campus and department omitted by the backend
		Extra: map[string]any{"title": "Senior Lecturer"},
	}

	merged := stored.Merge(fresh)

	assert.Equal(t, "A. Barnes", merged.Name)
	assert.Equal(t, "North", merged.Campus)
	assert.Equal(t, "Science", merged.Department)
	assert.Equal(t, "Senior Lecturer", merged.Extra["title"])
	assert.Equal(t, "N-101", merged.Extra["office"])
}

func TestUserProfile_MergeWithEmptyFreshKeepsStored(t *testing.T) {
	stored := UserProfile{ID: 1, Email: "a@b.com", Name: "A"}

	merged := stored.Merge(UserProfile{})

	assert.Equal(t, stored, merged)
}
