package envelope

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/todo-vault/internal/model"
)

// fastAge keeps scrypt cheap so the suite stays quick.
var fastAge = New(WithWorkFactor(10))

func sampleData() model.AppData {
	now := time.Date(2024, 6, 1, 12, 0, 0, 250_000_000, time.UTC)
	task := model.NewTask("t1", "Renew passport", []string{"admin"}, now)
	task.Status = model.StatusInProgress
	task.Subtasks = append(task.Subtasks, model.NewTask("t1a", "Take photo", nil, now.Add(time.Hour)))
	p := model.NewProject("p1", "Personal")
	p.Tasks = append(p.Tasks, task)
	return model.AppData{
		Projects:        []model.Project{p},
		ActiveProjectID: "p1",
		Filters:         model.DefaultFilters(),
	}
}

func deepData(depth int) model.AppData {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	root := model.NewTask("d0", "depth 0", nil, now)
	cur := &root
	for i := 1; i <= depth; i++ {
		cur.Subtasks = append(cur.Subtasks, model.NewTask("d"+strings.Repeat("1", i), "deeper", nil, now))
		cur = &cur.Subtasks[0]
	}
	p := model.NewProject("p", "Deep")
	p.Tasks = append(p.Tasks, root)
	return model.AppData{Projects: []model.Project{p}, Filters: model.DefaultFilters()}
}

func TestAgeRoundTrip(t *testing.T) {
	data := sampleData()
	token, err := fastAge.Encrypt(data, "pw1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "-----BEGIN AGE ENCRYPTED FILE-----"))
	assert.NotContains(t, token, "Renew passport")

	got, err := fastAge.Decrypt(token, "pw1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestAgeWrongPassphrase(t *testing.T) {
	token, err := fastAge.Encrypt(sampleData(), "pw1")
	require.NoError(t, err)

	got, err := fastAge.Decrypt(token, "pw2")
	assert.True(t, errors.Is(err, ErrUnableToDecrypt))
	assert.Equal(t, model.AppData{}, got)
}

func TestOpenSSLRoundTrip(t *testing.T) {
	env := New(WithFormat(FormatOpenSSL))
	data := sampleData()

	token, err := env.Encrypt(data, "pw1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, opensslPrefix))

	got, err := env.Decrypt(token, "pw1")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = env.Decrypt(token, "pw2")
	assert.True(t, errors.Is(err, ErrUnableToDecrypt))
}

func TestDecryptDetectsFormat(t *testing.T) {
	token, err := New(WithFormat(FormatOpenSSL)).Encrypt(sampleData(), "pw1")
	require.NoError(t, err)

	// An age-configured envelope still reads OpenSSL tokens.
	got, err := fastAge.Decrypt("  "+token+"\n", "pw1")
	require.NoError(t, err)
	assert.Equal(t, sampleData(), got)
}

func TestDecryptCryptoJSToken(t *testing.T) {
	raw, err := os.ReadFile("testdata/cryptojs_token.txt")
	require.NoError(t, err)

	got, err := Decrypt(string(raw), "hunter2")
	require.NoError(t, err)
	require.Len(t, got.Projects, 1)
	p := got.Projects[0]
	assert.Equal(t, "Мой проект", p.Name)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, "Buy groceries", p.Tasks[0].Title)
	require.Len(t, p.Tasks[0].Subtasks, 1)
	milk := p.Tasks[0].Subtasks[0]
	assert.Equal(t, model.StatusDone, milk.Status)
	assert.Equal(t, time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), milk.UpdatedAt)
	assert.Equal(t, []model.Status{model.StatusTodo, model.StatusInProgress}, got.Filters.Statuses)

	_, err = Decrypt(string(raw), "hunter3")
	assert.True(t, errors.Is(err, ErrUnableToDecrypt))
}

func TestDeepNestingSurvivesEnvelope(t *testing.T) {
	data := deepData(50)
	for _, env := range []*Envelope{fastAge, New(WithFormat(FormatOpenSSL))} {
		token, err := env.Encrypt(data, "deep")
		require.NoError(t, err)
		got, err := env.Decrypt(token, "deep")
		require.NoError(t, err)
		assert.Equal(t, data, got)

		depth := 0
		for task := got.Projects[0].Tasks[0]; len(task.Subtasks) > 0; task = task.Subtasks[0] {
			depth++
		}
		assert.Equal(t, 50, depth)
	}
}

func TestDecryptGarbage(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"U2FsdGVkX1!!!not-base64",
		"-----BEGIN AGE ENCRYPTED FILE-----\nnope\n-----END AGE ENCRYPTED FILE-----\n",
	}
	for _, token := range cases {
		_, err := fastAge.Decrypt(token, "pw")
		assert.True(t, errors.Is(err, ErrUnableToDecrypt), token)
	}
}

func TestDecryptTruncatedToken(t *testing.T) {
	token, err := fastAge.Encrypt(sampleData(), "pw1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(token), "\n")
	broken := strings.Join(append(lines[:len(lines)-2], lines[len(lines)-1]), "\n")

	_, err = fastAge.Decrypt(broken, "pw1")
	assert.True(t, errors.Is(err, ErrUnableToDecrypt))
}

func TestEncryptRejectsEmptyPassphrase(t *testing.T) {
	_, err := fastAge.Encrypt(sampleData(), "")
	assert.True(t, errors.Is(err, ErrEmptyPassphrase))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatAge, f)

	f, err = ParseFormat("CryptoJS")
	require.NoError(t, err)
	assert.Equal(t, FormatOpenSSL, f)

	_, err = ParseFormat("rot13")
	assert.Error(t, err)
}

func TestWorkFactorBounds(t *testing.T) {
	assert.Equal(t, DefaultWorkFactor, New(WithWorkFactor(0)).workFactor)
	assert.Equal(t, DefaultWorkFactor, New(WithWorkFactor(31)).workFactor)
	// Anything above the decrypt ceiling would export tokens no envelope can open.
	assert.Equal(t, DefaultWorkFactor, New(WithWorkFactor(maxWorkFactor+1)).workFactor)
	assert.Equal(t, DefaultWorkFactor, New(WithWorkFactor(24)).workFactor)
	assert.Equal(t, maxWorkFactor, New(WithWorkFactor(maxWorkFactor)).workFactor)
	assert.Equal(t, 12, New(WithWorkFactor(12)).workFactor)
}
