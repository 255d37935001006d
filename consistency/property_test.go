package consistency_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/checker/actor"
	"github.com/luxfi/checker/consistency"
	"github.com/luxfi/checker/model"
)

func identity(h consistency.History) consistency.History { return h }

// TestAsPropertyDelegatesToTester exercises the property-plumbing without
// depending on the real backtracking search: a MockTester lets the test
// dictate pass/fail directly, confirming AsProperty builds an Always
// property whose predicate reports Tester.Check's verdict.
func TestAsPropertyDelegatesToTester(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := consistency.NewMockTester(ctrl)
	mock.EXPECT().Check(gomock.Any()).Return(true, []int{0}).AnyTimes()

	prop := consistency.AsProperty[struct{}, struct{}, consistency.History]("register-consistent", mock, identity)
	require.Equal(t, model.Always, prop.Kind)
	require.True(t, prop.Predicate(actor.ActorModelState[struct{}, struct{}, consistency.History]{}))
}

func TestAsPropertyFailsCheckFailsProperty(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := consistency.NewMockTester(ctrl)
	mock.EXPECT().Check(gomock.Any()).Return(false, nil).AnyTimes()

	prop := consistency.AsProperty[struct{}, struct{}, consistency.History]("register-consistent", mock, identity)
	require.False(t, prop.Predicate(actor.ActorModelState[struct{}, struct{}, consistency.History]{}))
}
