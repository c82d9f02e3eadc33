package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/models"
	"github.com/raushankrgupta/dreamsoul/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testEmail = "a@b.com"

type fixture struct {
	svc     *Service
	users   *store.Memory
	blobs   *blob.Memory
	orphans *store.MemoryOrphans
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := store.NewMemory()
	u := models.NewUser("A B", "ab1", testEmail, "hash", models.GenderMale)
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	blobs := blob.NewMemory("")
	orphans := store.NewMemoryOrphans()
	return &fixture{
		svc:     NewService(users, blobs, orphans, zap.NewNop()),
		users:   users,
		blobs:   blobs,
		orphans: orphans,
	}
}

func (f *fixture) user(t *testing.T) *models.User {
	t.Helper()
	m, err := f.users.ResolveByEmail(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return m.User
}

func wantKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("err = %v, want %s", err, kind)
	}
	if e.Kind != kind {
		t.Fatalf("kind = %s, want %s (%v)", e.Kind, kind, err)
	}
	if msg != "" && e.Message != msg {
		t.Fatalf("message = %q, want %q", e.Message, msg)
	}
}

func TestGetProfile_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetProfile(context.Background(), "ghost@b.com")
	wantKind(t, err, apperr.KindNotFound, "User not found")
}

func TestCompleteProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := CompleteProfileInput{
		Age: "29", City: "Pune", State: "MH", Country: "India",
		InterestedIn: "Female", Bio: "<b>hello</b> there",
	}

	u, err := f.svc.CompleteProfile(ctx, testEmail, valid)
	if err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	if !u.IsProfileComplete || u.Age != 29 || u.InterestedIn != "female" {
		t.Errorf("user = %+v", u)
	}
	if u.Bio != "hello there" {
		t.Errorf("bio = %q", u.Bio)
	}

	// editing again keeps the flag and replaces the fields
	valid.City = "Mumbai"
	u, err = f.svc.CompleteProfile(ctx, testEmail, valid)
	if err != nil {
		t.Fatalf("second CompleteProfile: %v", err)
	}
	if u.City != "Mumbai" || !u.IsProfileComplete {
		t.Errorf("user = %+v", u)
	}

	tests := []struct {
		name string
		mod  func(in *CompleteProfileInput)
		msg  string
	}{
		{"missing city", func(in *CompleteProfileInput) { in.City = "" }, "All fields are required for profile completion"},
		{"missing age", func(in *CompleteProfileInput) { in.Age = "" }, "All fields are required for profile completion"},
		{"markup only bio", func(in *CompleteProfileInput) { in.Bio = "<p></p>" }, "All fields are required for profile completion"},
		{"too young", func(in *CompleteProfileInput) { in.Age = "17" }, "Age must be between 18 and 100"},
		{"too old", func(in *CompleteProfileInput) { in.Age = "101" }, "Age must be between 18 and 100"},
		{"fractional age", func(in *CompleteProfileInput) { in.Age = "20.5" }, "Age must be between 18 and 100"},
		{"bad interest", func(in *CompleteProfileInput) { in.InterestedIn = "cats" }, "Interested in must be one of male, female, both, others"},
		{"long bio", func(in *CompleteProfileInput) { in.Bio = strings.Repeat("x", 501) }, "Bio must be at most 500 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mod(&in)
			_, err := f.svc.CompleteProfile(ctx, testEmail, in)
			wantKind(t, err, apperr.KindValidation, tt.msg)
		})
	}
}

func TestAddVoice_Cap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := VoiceInput{Title: "hi", URL: "https://x/v.webm", Duration: "0:12"}

	for i := 0; i < models.MaxVoices; i++ {
		v, err := f.svc.AddVoice(ctx, testEmail, in)
		if err != nil {
			t.Fatalf("AddVoice %d: %v", i, err)
		}
		if v.Plays != 0 || v.ID.IsZero() {
			t.Errorf("voice = %+v", v)
		}
	}
	_, err := f.svc.AddVoice(ctx, testEmail, in)
	wantKind(t, err, apperr.KindCapacity, "")
	if n := len(f.user(t).AllVoices); n != models.MaxVoices {
		t.Errorf("voices = %d, want %d", n, models.MaxVoices)
	}

	_, err = f.svc.AddVoice(ctx, testEmail, VoiceInput{Title: "hi", URL: "u"})
	wantKind(t, err, apperr.KindValidation, "Title, URL, and duration are required")
}

func TestAddVoice_ConcurrentCallsNeverExceedCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := VoiceInput{Title: "hi", URL: "https://x/v.webm", Duration: "0:12"}
	for i := 0; i < 4; i++ {
		if _, err := f.svc.AddVoice(ctx, testEmail, in); err != nil {
			t.Fatalf("seed voice: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddVoice(ctx, testEmail, in)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !apperr.Is(err, apperr.KindCapacity) {
			t.Errorf("unexpected err: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful adds = %d, want 1", ok)
	}
	if n := len(f.user(t).AllVoices); n != models.MaxVoices {
		t.Errorf("voices = %d, want %d", n, models.MaxVoices)
	}
}

func TestAddHobby_VideoCapOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	video := HobbyInput{Name: "surf", Description: "waves", URL: "https://x/h.mp4", MediaType: "video"}
	image := HobbyInput{Name: "paint", Description: "oil", URL: "https://x/h.png", MediaType: "image"}

	for i := 0; i < models.MaxVideoHobbies; i++ {
		if _, err := f.svc.AddHobby(ctx, testEmail, video); err != nil {
			t.Fatalf("AddHobby video %d: %v", i, err)
		}
	}
	_, err := f.svc.AddHobby(ctx, testEmail, video)
	wantKind(t, err, apperr.KindCapacity, "")

	for i := 0; i < 7; i++ {
		if _, err := f.svc.AddHobby(ctx, testEmail, image); err != nil {
			t.Fatalf("AddHobby image %d: %v", i, err)
		}
	}
	if _, err := f.svc.AddHobby(ctx, testEmail, HobbyInput{Name: "chess", Description: "blitz"}); err != nil {
		t.Fatalf("AddHobby without media: %v", err)
	}
	if n := len(f.user(t).AllHobbies); n != 13 {
		t.Errorf("hobbies = %d, want 13", n)
	}

	_, err = f.svc.AddHobby(ctx, testEmail, HobbyInput{Name: "x", Description: "y", MediaType: "gif"})
	wantKind(t, err, apperr.KindValidation, "Media type must be image or video")
	_, err = f.svc.AddHobby(ctx, testEmail, HobbyInput{Name: "x"})
	wantKind(t, err, apperr.KindValidation, "Name and description are required")
}

func TestAddThoughtAndPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	th, err := f.svc.AddThought(ctx, testEmail, ThoughtInput{Title: "t", Content: "<i>c</i>"})
	if err != nil {
		t.Fatalf("AddThought: %v", err)
	}
	if th.Content != "c" || th.Likes != 0 || th.Comments != 0 {
		t.Errorf("thought = %+v", th)
	}
	_, err = f.svc.AddThought(ctx, testEmail, ThoughtInput{Content: "c"})
	wantKind(t, err, apperr.KindValidation, "Title and content are required")

	p, err := f.svc.AddPhoto(ctx, testEmail, PhotoInput{URL: "https://x/p.jpg"})
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	if p.Caption != "" || p.Likes != 0 {
		t.Errorf("photo = %+v", p)
	}
	_, err = f.svc.AddPhoto(ctx, testEmail, PhotoInput{Caption: "no url"})
	wantKind(t, err, apperr.KindValidation, "Photo URL is required")
}

func TestDeleteContent_Thought(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep, _ := f.svc.AddThought(ctx, testEmail, ThoughtInput{Title: "keep", Content: "k"})
	drop, _ := f.svc.AddThought(ctx, testEmail, ThoughtInput{Title: "drop", Content: "d"})
	if _, err := f.svc.AddPhoto(ctx, testEmail, PhotoInput{URL: "https://x/p.jpg"}); err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}

	if err := f.svc.DeleteContent(ctx, testEmail, "thought", drop.ID.Hex()); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	u := f.user(t)
	if len(u.AllThoughts) != 1 || u.AllThoughts[0].ID != keep.ID {
		t.Errorf("thoughts = %+v", u.AllThoughts)
	}
	if len(u.AllPhotos) != 1 {
		t.Errorf("photos touched: %+v", u.AllPhotos)
	}

	// a missing id still succeeds and changes nothing
	if err := f.svc.DeleteContent(ctx, testEmail, "thought", primitive.NewObjectID().Hex()); err != nil {
		t.Fatalf("DeleteContent missing id: %v", err)
	}
	if n := len(f.user(t).AllThoughts); n != 1 {
		t.Errorf("thoughts = %d, want 1", n)
	}
}

func TestDeleteContent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	err := f.svc.DeleteContent(ctx, testEmail, "song", primitive.NewObjectID().Hex())
	wantKind(t, err, apperr.KindValidation, "Invalid content type")
	err = f.svc.DeleteContent(ctx, testEmail, "photo", "not-hex")
	wantKind(t, err, apperr.KindValidation, "Invalid content id")
	err = f.svc.DeleteContent(ctx, "ghost@b.com", "photo", primitive.NewObjectID().Hex())
	wantKind(t, err, apperr.KindNotFound, "User not found")
}

func TestDeleteContent_DeletesBlobWithResourceHint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.UploadVoice(ctx, testEmail, &File{Body: strings.NewReader("clip"), Size: 4, ContentType: "audio/webm"})
	if err != nil {
		t.Fatalf("UploadVoice: %v", err)
	}
	v, err := f.svc.AddVoice(ctx, testEmail, VoiceInput{Title: "v", URL: res.URL, Duration: "0:10"})
	if err != nil {
		t.Fatalf("AddVoice: %v", err)
	}
	id, _ := f.blobs.PublicID(res.URL)

	if err := f.svc.DeleteContent(ctx, testEmail, "voice", v.ID.Hex()); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if _, ok := f.blobs.Get(id); ok {
		t.Error("voice blob not deleted")
	}
	if len(f.user(t).AllVoices) != 0 {
		t.Error("voice metadata not deleted")
	}
}

func TestDeleteContent_BlobFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.UploadPhoto(ctx, testEmail, &File{Body: strings.NewReader("img"), Size: 3, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	p, err := f.svc.AddPhoto(ctx, testEmail, PhotoInput{URL: res.URL})
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}

	f.blobs.SetFailDeletes(true)
	if err := f.svc.DeleteContent(ctx, testEmail, "photo", p.ID.Hex()); err != nil {
		t.Fatalf("DeleteContent should swallow blob errors: %v", err)
	}
	if len(f.user(t).AllPhotos) != 0 {
		t.Error("metadata should be removed even when the blob delete fails")
	}

	orphans, err := f.orphans.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(orphans))
	}
	want, _ := f.blobs.PublicID(res.URL)
	if o := orphans[0]; o.PublicID != want || o.ResourceType != "image" || o.LastError == "" {
		t.Errorf("orphan = %+v", o)
	}
}

func TestDeleteContent_ForeignURLSkipsBlobStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.AddPhoto(ctx, testEmail, PhotoInput{URL: "https://elsewhere.example/p.jpg"})
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	f.blobs.SetFailDeletes(true)
	if err := f.svc.DeleteContent(ctx, testEmail, "photo", p.ID.Hex()); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if orphans, _ := f.orphans.List(ctx, 10, 0); len(orphans) != 0 {
		t.Errorf("orphans = %+v", orphans)
	}
}

func TestDeleteContent_KeepsOtherUsersBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	victim := models.NewUser("C D", "cd1", "c@d.com", "hash", models.GenderFemale)
	if err := f.users.Create(ctx, victim); err != nil {
		t.Fatalf("seed victim: %v", err)
	}

	res, err := f.svc.UploadPhoto(ctx, "c@d.com", &File{Body: strings.NewReader("img"), Size: 3, ContentType: "image/png"})
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if _, err := f.svc.AddPhoto(ctx, "c@d.com", PhotoInput{URL: res.URL}); err != nil {
		t.Fatalf("victim AddPhoto: %v", err)
	}
	victimID, _ := f.blobs.PublicID(res.URL)

	// the copied URL is listed and deleted by someone else
	p, err := f.svc.AddPhoto(ctx, testEmail, PhotoInput{URL: res.URL})
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	if err := f.svc.DeleteContent(ctx, testEmail, "photo", p.ID.Hex()); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}

	if len(f.user(t).AllPhotos) != 0 {
		t.Error("caller's photo entry not removed")
	}
	if _, ok := f.blobs.Get(victimID); !ok {
		t.Fatalf("victim's blob %s deleted, deletes = %v", victimID, f.blobs.DeletedIDs())
	}
	if orphans, _ := f.orphans.List(ctx, 10, 0); len(orphans) != 0 {
		t.Errorf("orphans = %+v", orphans)
	}
}

func TestOwnedBy(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"own photo", FolderPhotos + "/" + me.Hex() + "/abc", true},
		{"own profile picture", FolderProfilePictures + "/" + me.Hex() + "/abc", true},
		{"other user", FolderPhotos + "/" + other.Hex() + "/abc", false},
		{"shared folder", FolderPhotos + "/abc", false},
		{"folder itself", FolderPhotos + "/" + me.Hex(), false},
		{"escapes folder", FolderPhotos + "/" + me.Hex() + "/../" + other.Hex() + "/abc", false},
		{"unknown folder", "Elsewhere/" + me.Hex() + "/abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ownedBy(tt.id, me); got != tt.want {
				t.Errorf("ownedBy(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestStoreErr(t *testing.T) {
	if !apperr.Is(storeErr("x", store.ErrCapacity, "full"), apperr.KindCapacity) {
		t.Error("capacity not mapped")
	}
	if !apperr.Is(storeErr("x", store.ErrNotFound, ""), apperr.KindNotFound) {
		t.Error("not found not mapped")
	}
	err := storeErr("x", errors.New("socket closed"), "")
	if apperr.StatusOf(err) != 500 {
		t.Errorf("status = %d", apperr.StatusOf(err))
	}
}
