package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	"github.com/trezcool/escuela/testutil"
)

var (
	testCtx = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// world is a small two-school fixture:
// school1 has c1 (st1, taught by teacher, ward of guardian) and c2 (st2); school2 has c3 (st3).
type world struct {
	env    *testutil.Env
	server *Server

	school1, school2         school.School
	c1, c2, c3               school.Classroom
	st1, st2, st3            school.Student
	director, director2      user.User
	teacher, guardian, idler user.User
}

func setup(t *testing.T, debug ...bool) *world {
	env := testutil.NewEnv(t)
	if len(debug) > 0 {
		env.Conf.Debug = debug[0]
	}
	w := &world{env: env}

	w.server = NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Resolver:       env.Resolver,
		UserSvc:        env.UserSvc,
		SchoolSvc:      env.SchoolSvc,
		MessageSvc:     env.MessageSvc,
		AttendanceSvc:  env.AttendanceSvc,
		DisableReqLogs: true,
	})

	w.school1 = testutil.CreateSchool(t, env.Schools, "Lycée Wima")
	w.school2 = testutil.CreateSchool(t, env.Schools, "Collège Boboto")

	w.c1 = testutil.CreateClassroom(t, env.Schools, w.school1.ID, "6A")
	w.c2 = testutil.CreateClassroom(t, env.Schools, w.school1.ID, "6B")
	w.c3 = testutil.CreateClassroom(t, env.Schools, w.school2.ID, "1A")

	w.st1 = testutil.CreateStudent(t, env.Schools, w.school1.ID, "Amani", "Kabila")
	w.st2 = testutil.CreateStudent(t, env.Schools, w.school1.ID, "Bijou", "Lumumba")
	w.st3 = testutil.CreateStudent(t, env.Schools, w.school2.ID, "Chance", "Mobutu")
	testutil.Enroll(t, env.Schools, w.st1, w.c1)
	testutil.Enroll(t, env.Schools, w.st2, w.c2)
	testutil.Enroll(t, env.Schools, w.st3, w.c3)

	w.director = testutil.CreateUser(t, env.Users, "Director", "director@test.cd", "Pwd.1234", access.RoleDirector, w.school1.ID, true)
	w.director2 = testutil.CreateUser(t, env.Users, "Director 2", "director2@test.cd", "", access.RoleDirector, w.school2.ID, true)
	w.teacher = testutil.CreateUser(t, env.Users, "Teacher", "teacher@test.cd", "", access.RoleTeacher, w.school1.ID, true)
	w.guardian = testutil.CreateUser(t, env.Users, "Guardian", "guardian@test.cd", "", access.RoleGuardian, w.school1.ID, true)
	w.idler = testutil.CreateUser(t, env.Users, "Idle", "idle@test.cd", "", access.RoleTeacher, w.school1.ID, false)
	testutil.Assign(t, env.Schools, w.teacher, w.c1)
	testutil.LinkGuardian(t, env.Schools, w.guardian, w.st1, "mother")

	return w
}

func (w *world) token(t *testing.T, usr user.User) string {
	token, err := w.server.generateToken(w.server.userClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (w *world) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	w.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func ids(t *testing.T, rec *httptest.ResponseRecorder) []string {
	var objs []struct {
		ID string `json:"id"`
	}
	unmarchall(t, rec, &objs)
	res := make([]string, 0, len(objs))
	for _, o := range objs {
		res = append(res, o.ID)
	}
	return res
}
