package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"vidoma-bot/internal/bot/wizard"
)

func testWizard() *wizard.Wizard {
	return wizard.New(1, 1, "", wizard.Deps{Logger: zap.NewNop()})
}

func TestSessionStoreReusesSessions(t *testing.T) {
	store := newSessionStore()

	first := store.get(100)
	second := store.get(100)
	other := store.get(200)

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestSessionNavStack(t *testing.T) {
	sess := &session{}

	_, ok := sess.popNav()
	assert.False(t, ok)

	sess.pushNav("categories")
	sess.pushNav("category_5")

	top, ok := sess.popNav()
	assert.True(t, ok)
	assert.Equal(t, "category_5", top)

	sess.clearNav()
	_, ok = sess.popNav()
	assert.False(t, ok)
}

func TestSessionSetWizardCancelsPrevious(t *testing.T) {
	sess := &session{}

	old := testWizard()
	sess.setWizard(old)
	assert.Same(t, old, sess.activeWizard())

	replacement := testWizard()
	sess.setWizard(replacement)

	assert.True(t, old.Done())
	assert.Same(t, replacement, sess.activeWizard())
}

func TestSessionActiveWizardDropsFinished(t *testing.T) {
	sess := &session{}

	w := testWizard()
	sess.setWizard(w)
	w.Cancel()

	assert.Nil(t, sess.activeWizard())
}

func TestSessionAIMode(t *testing.T) {
	sess := &session{}
	assert.False(t, sess.inAIMode())

	sess.setAIMode(true)
	assert.True(t, sess.inAIMode())

	sess.setAIMode(false)
	assert.False(t, sess.inAIMode())
}
