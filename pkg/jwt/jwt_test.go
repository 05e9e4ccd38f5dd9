package jwt

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("test-secret", "merchant-identity")

	token, err := m.Issue(42, "ops", time.Hour)
	if err != nil {
		t.Fatalf("签发失败: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if claims.OperatorID != 42 || claims.Name != "ops" {
		t.Errorf("claims不符合预期: %+v", claims)
	}
}

func TestManager_Parse_Expired(t *testing.T) {
	m := NewManager("test-secret", "")

	token, _ := m.Issue(1, "ops", -time.Minute)
	_, err := m.Parse(token)
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("期望ErrTokenExpired，实际%v", err)
	}
}

func TestManager_Parse_WrongSecretOrIssuer(t *testing.T) {
	token, _ := NewManager("other-secret", "merchant-identity").Issue(1, "ops", time.Hour)

	if _, err := NewManager("test-secret", "merchant-identity").Parse(token); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("密钥不同应校验失败，实际%v", err)
	}

	token, _ = NewManager("test-secret", "someone-else").Issue(1, "ops", time.Hour)
	if _, err := NewManager("test-secret", "merchant-identity").Parse(token); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("签发方不同应校验失败，实际%v", err)
	}
}
