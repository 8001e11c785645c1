package httpx

import (
	"time"

	"github.com/warble-app/warble/internal/domain"
)

// Response shapes keep the field names the web client already speaks:
// Mongo-style "_id", camelCase, no password field anywhere.

func userPayload(u *domain.User) map[string]any {
	return map[string]any{
		"_id":        u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"fullName":   u.FullName,
		"bio":        u.Bio,
		"link":       u.Link,
		"profileImg": u.ProfileImg,
		"coverImg":   u.CoverImg,
		"followers":  stringList(u.Followers),
		"following":  stringList(u.Following),
		"likedPosts": stringList(u.LikedPosts),
		"createdAt":  timestamp(u.CreatedAt),
	}
}

func summaryPayload(s domain.UserSummary) map[string]any {
	return map[string]any{
		"_id":        s.ID,
		"username":   s.Username,
		"fullName":   s.FullName,
		"profileImg": s.ProfileImg,
	}
}

func postPayload(p *domain.Post) map[string]any {
	comments := make([]map[string]any, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, map[string]any{
			"_id":       c.ID,
			"text":      c.Text,
			"user":      summaryPayload(c.Author),
			"createdAt": timestamp(c.CreatedAt),
		})
	}
	return map[string]any{
		"_id":       p.ID,
		"user":      summaryPayload(p.Author),
		"text":      p.Text,
		"img":       p.ImageURL,
		"likes":     stringList(p.Likes),
		"comments":  comments,
		"createdAt": timestamp(p.CreatedAt),
	}
}

func notificationPayload(n *domain.Notification) map[string]any {
	return map[string]any{
		"_id":       n.ID,
		"type":      n.Kind,
		"from":      summaryPayload(n.From),
		"postId":    n.PostID,
		"read":      n.Read,
		"createdAt": timestamp(n.CreatedAt),
	}
}

func stringList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
