package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kumbo-archives/archives-client/internal/models"
)

// DevPassword is the password every seeded fixture account accepts.
const DevPassword = "kumbo-dev"

// State is the in-memory world the fixture server exposes. It exists so the
// SDK and CLI can be exercised with zero infrastructure.
type State struct {
	mu sync.RWMutex

	users       map[string]*models.User
	passwords   map[string]string
	documents   map[string]*models.Document
	contents    map[string][]byte
	activity    []models.ActivityEntry
	resetTokens map[string]string

	startedAt     time.Time
	uploadsToday  int
	searchesToday int
}

// NewState seeds a populated world.
func NewState() *State {
	s := &State{
		users:       map[string]*models.User{},
		passwords:   map[string]string{},
		documents:   map[string]*models.Document{},
		contents:    map[string][]byte{},
		resetTokens: map[string]string{},
		startedAt:   time.Now(),
	}
	s.seed()
	return s
}

func (s *State) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte(DevPassword), bcrypt.DefaultCost)

	seedUsers := []models.User{
		{ID: uuid.NewString(), Email: "admin@kumbo.org", FullName: "Adama Ngwa", Role: models.RoleAdmin, Department: "Administration", Permissions: []string{"users:manage", "documents:manage", "analytics:view"}, Active: true},
		{ID: uuid.NewString(), Email: "staff@kumbo.org", FullName: "Beatrice Fon", Role: models.RoleStaff, Department: "Records", Permissions: []string{"documents:manage"}, Active: true},
		{ID: uuid.NewString(), Email: "researcher@kumbo.org", FullName: "Charles Yuyun", Role: models.RoleResearcher, Department: "Research", Permissions: []string{"documents:read"}, Active: true},
	}
	now := time.Now()
	for i := range seedUsers {
		user := seedUsers[i]
		user.CreatedAt = now.Add(-time.Duration(30+i) * 24 * time.Hour)
		user.UpdatedAt = user.CreatedAt
		s.users[user.ID] = &user
		s.passwords[user.ID] = string(hash)
	}

	uploader := seedUsers[1]
	seedDocs := []models.Document{
		{Title: "Council Minutes 1987", Category: "Administrative", Department: "Administration", Keywords: []string{"council", "minutes"}, FileName: "council-minutes-1987.pdf", MIMEType: "application/pdf", IsPublic: false},
		{Title: "Market Survey Photographs", Category: "Historical", Department: "Records", Keywords: []string{"market", "photo"}, FileName: "market-survey.jpg", MIMEType: "image/jpeg", IsPublic: true},
		{Title: "Land Grant Deeds", Category: "Legal", Department: "Records", Keywords: []string{"land", "deed"}, FileName: "land-grants.pdf", MIMEType: "application/pdf", IsPublic: false},
	}
	for i := range seedDocs {
		doc := seedDocs[i]
		doc.ID = uuid.NewString()
		doc.UploadedBy = uploader.ID
		doc.FileSize = int64(2048 * (i + 1))
		doc.CreatedAt = now.Add(-time.Duration(i+1) * 24 * time.Hour)
		doc.UpdatedAt = doc.CreatedAt
		s.documents[doc.ID] = &doc
		s.contents[doc.ID] = []byte(strings.Repeat("kumbo-archive ", 128*(i+1)))
	}
}

func (s *State) findByEmail(email string) *models.User {
	email = strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == email {
			return user
		}
	}
	return nil
}

func (s *State) recordActivity(userID, action, resource, detail string) {
	entry := models.ActivityEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	s.activity = append([]models.ActivityEntry{entry}, s.activity...)
	if len(s.activity) > 500 {
		s.activity = s.activity[:500]
	}
}

// paginate slices a total into one page and returns its metadata.
func paginate(total, page, limit int) (start, end int, pagination *models.Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	return start, end, &models.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func sortedUsers(users []models.User, sortBy, order string) {
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(users, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "email":
			less = users[i].Email < users[j].Email
		case "created_at":
			less = users[i].CreatedAt.Before(users[j].CreatedAt)
		default:
			less = users[i].FullName < users[j].FullName
		}
		if desc {
			return !less
		}
		return less
	})
}

func sortedDocuments(docs []models.Document, sortBy, order string) {
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(docs, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "title":
			less = docs[i].Title < docs[j].Title
		case "file_size":
			less = docs[i].FileSize < docs[j].FileSize
		default:
			less = docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}
