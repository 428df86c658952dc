package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

// Несколько чтений подряд не теряют буферизованный ввод
func TestReadInput_Sequential(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader("alice\n  secret password  \nlast"), &out)

	user, err := stdio.ReadInput("Username: ")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	// не терминал: пароль читается как обычная строка
	pass, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret password", pass)

	// последняя строка без перевода строки
	last, err := stdio.ReadInput("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", last)

	_, err = stdio.ReadInput("> ")
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "Username: Password: > > ", out.String())
}
