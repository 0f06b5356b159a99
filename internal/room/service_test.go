package room

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/database/models"
	"github.com/cubedev/cubedev/internal/pubsub"
	"github.com/cubedev/cubedev/internal/wca"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewService(db, pubsub.GetBroker(), nil), db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: name,
		Name:     name,
	}
	if err := database.CreateUser(db, &user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func testScrambles(n int) []string {
	scrambles := make([]string, n)
	for i := range scrambles {
		scrambles[i] = fmt.Sprintf("R U R' U' scramble-%d", i+1)
	}
	return scrambles
}

func createTestRoom(t *testing.T, svc *Service, db *gorm.DB, format wca.Format) (*models.ChallengeRoom, *models.User) {
	t.Helper()
	user := createTestUser(t, db, "creator-"+uuid.NewString()[:8])
	count, _ := wca.SolveCount(format)
	rm, err := svc.Create(user.ID, CreateInput{
		Name:      "Test Room",
		Event:     "333",
		Format:    format,
		Scrambles: testScrambles(count),
		IsPublic:  true,
	})
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return rm, user
}

func TestCreateRoomValidation(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "alice")

	tests := []struct {
		name    string
		input   CreateInput
		wantErr error
	}{
		{
			"scramble count mismatch",
			CreateInput{Name: "r", Event: "333", Format: wca.FormatAo5, Scrambles: testScrambles(4)},
			ErrScrambleCount,
		},
		{
			"unknown event",
			CreateInput{Name: "r", Event: "334", Format: wca.FormatAo5, Scrambles: testScrambles(5)},
			ErrInvalidEvent,
		},
		{
			"unknown format",
			CreateInput{Name: "r", Event: "333", Format: wca.Format("ao100"), Scrambles: testScrambles(5)},
			ErrInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(user.ID, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.Create(uuid.NewString(), CreateInput{
		Name: "r", Event: "333", Format: wca.FormatAo5, Scrambles: testScrambles(5),
	}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Create() with missing user error = %v, want ErrUserNotFound", err)
	}
}

func TestCreateRoomDefaults(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	if len(rm.Code) != codeLength {
		t.Errorf("code length = %d, want %d", len(rm.Code), codeLength)
	}
	if rm.Status != models.RoomActive {
		t.Errorf("status = %s, want active", rm.Status)
	}
	if len(rm.Scrambles) != 5 {
		t.Errorf("scramble count = %d, want 5", len(rm.Scrambles))
	}
	wantExpiry := rm.CreatedAt.Add(Lifetime)
	if diff := rm.ExpiresAt.Sub(wantExpiry); diff < -time.Second || diff > time.Second {
		t.Errorf("expires_at not 48h after creation (diff %v)", diff)
	}

	ao12, _ := createTestRoom(t, svc, db, wca.FormatAo12)
	if len(ao12.Scrambles) != 12 {
		t.Errorf("ao12 scramble count = %d, want 12", len(ao12.Scrambles))
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "bob")

	first, _, err := svc.Join(user.ID, rm.ID)
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if first.TotalSolves != 5 {
		t.Errorf("total solves = %d, want 5", first.TotalSolves)
	}

	second, _, err := svc.Join(user.ID, rm.ID)
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("second join returned a different participant")
	}

	reloaded, err := database.GetRoomByID(db, rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.ParticipantCount != 1 {
		t.Errorf("participant count = %d, want 1", reloaded.ParticipantCount)
	}
}

func TestJoinClosedRooms(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "carol")

	if _, _, err := svc.Join(user.ID, uuid.NewString()); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("join missing room error = %v, want ErrRoomNotFound", err)
	}

	expired, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	db.Model(&models.ChallengeRoom{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute))
	if _, _, err := svc.Join(user.ID, expired.ID); !errors.Is(err, ErrRoomExpired) {
		t.Errorf("join expired room error = %v, want ErrRoomExpired", err)
	}

	inactive, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	db.Model(&models.ChallengeRoom{}).Where("id = ?", inactive.ID).
		Update("status", models.RoomExpired)
	if _, _, err := svc.Join(user.ID, inactive.ID); !errors.Is(err, ErrRoomNotActive) {
		t.Errorf("join inactive room error = %v, want ErrRoomNotActive", err)
	}
}

func submitSeconds(t *testing.T, svc *Service, userID, roomID string, times []float64, penalties []wca.Penalty) {
	t.Helper()
	for i, secs := range times {
		penalty := wca.PenaltyNone
		if penalties != nil {
			penalty = penalties[i]
		}
		if _, err := svc.SubmitSolve(userID, roomID, i+1, int64(secs*1000), penalty, ""); err != nil {
			t.Fatalf("solve %d failed: %v", i+1, err)
		}
	}
}

func TestSubmitSolveDuplicateSlot(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "dave")
	svc.Join(user.ID, rm.ID)

	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, ""); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 11000, wca.PenaltyNone, ""); !errors.Is(err, ErrDuplicateSolve) {
		t.Errorf("duplicate submit error = %v, want ErrDuplicateSolve", err)
	}

	p, err := database.GetParticipant(db, rm.ID, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.SolvesCompleted != 1 {
		t.Errorf("solves completed = %d after rejected duplicate, want 1", p.SolvesCompleted)
	}
}

func TestSubmitSolveValidation(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "erin")

	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, ""); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("submit without joining error = %v, want ErrNotParticipant", err)
	}

	svc.Join(user.ID, rm.ID)
	if _, err := svc.SubmitSolve(user.ID, rm.ID, 6, 10000, wca.PenaltyNone, ""); !errors.Is(err, ErrBadSolveNumber) {
		t.Errorf("out-of-range solve number error = %v, want ErrBadSolveNumber", err)
	}
	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.Penalty("+4"), ""); !errors.Is(err, ErrInvalidPenalty) {
		t.Errorf("bad penalty error = %v, want ErrInvalidPenalty", err)
	}
}

func TestSubmitSolveClosedRooms(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "dave")
	if _, _, err := svc.Join(user.ID, rm.ID); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Joined in time, but the deadline passed before submitting.
	if err := db.Model(&models.ChallengeRoom{}).Where("id = ?", rm.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("failed to backdate room: %v", err)
	}
	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, ""); !errors.Is(err, ErrRoomExpired) {
		t.Errorf("got %v, want ErrRoomExpired", err)
	}

	// The sweep flipped the room to expired.
	if err := db.Model(&models.ChallengeRoom{}).Where("id = ?", rm.ID).
		Update("status", models.RoomExpired).Error; err != nil {
		t.Fatalf("failed to flip room status: %v", err)
	}
	if _, err := svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, ""); !errors.Is(err, ErrRoomNotActive) {
		t.Errorf("got %v, want ErrRoomNotActive", err)
	}

	// Neither rejected submission touched the participant.
	p, err := database.GetParticipant(db, rm.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to load participant: %v", err)
	}
	if p.SolvesCompleted != 0 {
		t.Errorf("SolvesCompleted = %d, want 0", p.SolvesCompleted)
	}
}

func TestCompletionComputesStats(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "frank")
	svc.Join(user.ID, rm.ID)

	submitSeconds(t, svc, user.ID, rm.ID, []float64{10, 12, 11, 9, 13}, nil)

	p, err := database.GetParticipant(db, rm.ID, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsCompleted {
		t.Fatal("participant should be completed after 5 solves")
	}
	if p.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if p.Average == nil || *p.Average != 11000 {
		t.Errorf("average = %v, want 11000", p.Average)
	}
	if p.BestSingle == nil || *p.BestSingle != 9000 {
		t.Errorf("best single = %v, want 9000", p.BestSingle)
	}

	reloaded, _ := database.GetRoomByID(db, rm.ID)
	if reloaded.CompletedCount != 1 {
		t.Errorf("room completed count = %d, want 1", reloaded.CompletedCount)
	}
}

func TestCompletionWithTwoDNFs(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "grace")
	svc.Join(user.ID, rm.ID)

	penalties := []wca.Penalty{wca.PenaltyNone, wca.PenaltyDNF, wca.PenaltyNone, wca.PenaltyDNF, wca.PenaltyNone}
	submitSeconds(t, svc, user.ID, rm.ID, []float64{10, 12, 11, 9, 13}, penalties)

	p, _ := database.GetParticipant(db, rm.ID, user.ID)
	if p.DNFCount != 2 {
		t.Errorf("dnf count = %d, want 2", p.DNFCount)
	}
	if p.Average == nil || *p.Average != wca.DNFTime {
		t.Errorf("average = %v, want DNF sentinel", p.Average)
	}
	// Best single ignores DNFs: min of 10, 11, 13.
	if p.BestSingle == nil || *p.BestSingle != 10000 {
		t.Errorf("best single = %v, want 10000", p.BestSingle)
	}
}

func TestSubmitRecordsScramble(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "heidi")
	svc.Join(user.ID, rm.ID)

	solve, err := svc.SubmitSolve(user.ID, rm.ID, 3, 9500, wca.PenaltyPlus2, "slipped")
	if err != nil {
		t.Fatal(err)
	}
	if solve.Scramble != rm.Scrambles[2] {
		t.Errorf("scramble = %q, want the room's third scramble %q", solve.Scramble, rm.Scrambles[2])
	}
	if solve.FinalTimeMs != 11500 {
		t.Errorf("final time = %d, want 11500 (+2 applied)", solve.FinalTimeMs)
	}
}

func TestDetailsOrdering(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	fast := createTestUser(t, db, "fast")
	slow := createTestUser(t, db, "slow")
	partial := createTestUser(t, db, "partial")
	idle := createTestUser(t, db, "idle")
	for _, u := range []*models.User{fast, slow, partial, idle} {
		if _, _, err := svc.Join(u.ID, rm.ID); err != nil {
			t.Fatal(err)
		}
	}

	submitSeconds(t, svc, slow.ID, rm.ID, []float64{20, 22, 21, 19, 23}, nil)
	submitSeconds(t, svc, fast.ID, rm.ID, []float64{10, 12, 11, 9, 13}, nil)
	submitSeconds(t, svc, partial.ID, rm.ID, []float64{15, 15}, []wca.Penalty{wca.PenaltyNone, wca.PenaltyNone})

	details, err := svc.Details(rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(details.Participants) != 4 {
		t.Fatalf("participant count = %d, want 4", len(details.Participants))
	}

	order := make([]string, 4)
	for i, p := range details.Participants {
		order[i] = p.UserID
	}
	want := []string{fast.ID, slow.ID, partial.ID, idle.ID}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ordering at %d = %s, want %s (completed first, by average; incomplete by progress)", i, order[i], want[i])
		}
	}

	if details.IsExpired {
		t.Error("fresh room should not report is_expired")
	}
}

func TestResolveCode(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	found, err := svc.ResolveCode(rm.Code)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if found.ID != rm.ID {
		t.Errorf("resolved room %s, want %s", found.ID, rm.ID)
	}

	// Lookup is case-insensitive for the caller.
	if _, err := svc.ResolveCode(strings.ToLower(rm.Code)); err != nil {
		t.Errorf("lower-case resolve failed: %v", err)
	}

	if _, err := svc.ResolveCode("NOSUCH"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("got %v, want ErrRoomNotFound", err)
	}
}

func TestUpdateRoomAuthorization(t *testing.T) {
	svc, db := newTestService(t)
	rm, creator := createTestRoom(t, svc, db, wca.FormatAo5)
	stranger := createTestUser(t, db, "mallory")

	if err := svc.Update(stranger.ID, rm.ID, "hijacked", ""); !errors.Is(err, ErrNotCreator) {
		t.Errorf("non-creator update error = %v, want ErrNotCreator", err)
	}

	if err := svc.Update(creator.ID, rm.ID, "renamed", "new description"); err != nil {
		t.Fatalf("creator update failed: %v", err)
	}
	reloaded, _ := database.GetRoomByID(db, rm.ID)
	if reloaded.Name != "renamed" || reloaded.Description != "new description" {
		t.Error("update did not persist name/description")
	}
}

func TestUpdateRanks(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	fast := createTestUser(t, db, "fast")
	slow := createTestUser(t, db, "slow")
	dnf := createTestUser(t, db, "dnf")
	for _, u := range []*models.User{fast, slow, dnf} {
		svc.Join(u.ID, rm.ID)
	}

	submitSeconds(t, svc, slow.ID, rm.ID, []float64{20, 22, 21, 19, 23}, nil)
	submitSeconds(t, svc, fast.ID, rm.ID, []float64{10, 12, 11, 9, 13}, nil)
	submitSeconds(t, svc, dnf.ID, rm.ID, []float64{10, 10, 10, 10, 10},
		[]wca.Penalty{wca.PenaltyDNF, wca.PenaltyDNF, wca.PenaltyNone, wca.PenaltyNone, wca.PenaltyNone})

	ranked, err := svc.UpdateRanks(rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ranked != 3 {
		t.Errorf("ranked = %d, want 3", ranked)
	}

	wantRanks := map[string]int{fast.ID: 1, slow.ID: 2, dnf.ID: 3}
	for userID, want := range wantRanks {
		p, _ := database.GetParticipant(db, rm.ID, userID)
		if p.FinalRank != want {
			t.Errorf("rank for %s = %d, want %d", p.User.Name, p.FinalRank, want)
		}
	}
}

func TestCleanupExpiredCascades(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "ivan")
	svc.Join(user.ID, rm.ID)
	svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, "")

	db.Model(&models.ChallengeRoom{}).Where("id = ?", rm.ID).
		Update("created_at", time.Now().Add(-Lifetime-time.Hour))

	deleted, err := svc.CleanupExpired()
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	var rooms, participants, solves int64
	db.Model(&models.ChallengeRoom{}).Count(&rooms)
	db.Model(&models.RoomParticipant{}).Count(&participants)
	db.Model(&models.RoomSolve{}).Count(&solves)
	if rooms != 0 || participants != 0 || solves != 0 {
		t.Errorf("orphans left behind: rooms=%d participants=%d solves=%d", rooms, participants, solves)
	}
}

func TestProcessExpiredFlipsStatusAndRanks(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "judy")
	svc.Join(user.ID, rm.ID)
	submitSeconds(t, svc, user.ID, rm.ID, []float64{10, 12, 11, 9, 13}, nil)

	// Deadline passed 30 minutes ago, inside the sweep's trailing window.
	db.Model(&models.ChallengeRoom{}).Where("id = ?", rm.ID).
		Update("expires_at", time.Now().Add(-30*time.Minute))

	if err := svc.ProcessExpired(); err != nil {
		t.Fatal(err)
	}

	reloaded, _ := database.GetRoomByID(db, rm.ID)
	if reloaded.Status != models.RoomExpired {
		t.Errorf("status = %s, want expired", reloaded.Status)
	}
	p, _ := database.GetParticipant(db, rm.ID, user.ID)
	if p.FinalRank != 1 {
		t.Errorf("final rank = %d, want 1", p.FinalRank)
	}
}

func TestProcessExpiredDeletesOldRooms(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	db.Model(&models.ChallengeRoom{}).Where("id = ?", rm.ID).
		Update("created_at", time.Now().Add(-RetentionPeriod-time.Hour))

	if err := svc.ProcessExpired(); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.ChallengeRoom{}).Count(&count)
	if count != 0 {
		t.Errorf("rooms past retention should be deleted, %d left", count)
	}
}

func TestUserParticipation(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	user := createTestUser(t, db, "kate")

	got, err := svc.UserParticipation(user.ID, rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("participation before joining should be nil")
	}

	svc.Join(user.ID, rm.ID)
	svc.SubmitSolve(user.ID, rm.ID, 2, 12000, wca.PenaltyNone, "")
	svc.SubmitSolve(user.ID, rm.ID, 1, 10000, wca.PenaltyNone, "")

	got, err = svc.UserParticipation(user.ID, rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("participation after joining should not be nil")
	}
	if len(got.Solves) != 2 {
		t.Fatalf("solve count = %d, want 2", len(got.Solves))
	}
	if got.Solves[0].SolveNumber != 1 || got.Solves[1].SolveNumber != 2 {
		t.Error("solves not ordered by solve number ascending")
	}
}

func TestRecentRooms(t *testing.T) {
	svc, db := newTestService(t)
	user := createTestUser(t, db, "liam")

	first, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	second, _ := createTestRoom(t, svc, db, wca.FormatAo5)
	svc.Join(user.ID, first.ID)
	svc.Join(user.ID, second.ID)

	recent, err := svc.RecentRooms(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent count = %d, want 2", len(recent))
	}
}

func TestEndToEndRace(t *testing.T) {
	svc, db := newTestService(t)
	rm, _ := createTestRoom(t, svc, db, wca.FormatAo5)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	svc.Join(alice.ID, rm.ID)
	svc.Join(bob.ID, rm.ID)

	submitSeconds(t, svc, alice.ID, rm.ID, []float64{10.5, 12.3, 11.1, 9.8, 13.2}, nil)
	submitSeconds(t, svc, bob.ID, rm.ID, []float64{14.1, 15.9, 14.7, 13.6, 16.4}, nil)

	details, err := svc.Details(rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range details.Participants {
		if !p.IsCompleted {
			t.Fatalf("participant %s not completed", p.UserID)
		}
	}
	if details.Participants[0].UserID != alice.ID {
		t.Error("alice should lead the board on average")
	}

	if _, err := svc.UpdateRanks(rm.ID); err != nil {
		t.Fatal(err)
	}
	pa, _ := database.GetParticipant(db, rm.ID, alice.ID)
	pb, _ := database.GetParticipant(db, rm.ID, bob.ID)
	if pa.FinalRank != 1 || pb.FinalRank != 2 {
		t.Errorf("ranks = %d/%d, want 1/2", pa.FinalRank, pb.FinalRank)
	}

	reloaded, _ := database.GetRoomByID(db, rm.ID)
	if reloaded.ParticipantCount != 2 || reloaded.CompletedCount != 2 {
		t.Errorf("counters = %d/%d, want 2/2", reloaded.ParticipantCount, reloaded.CompletedCount)
	}
}
