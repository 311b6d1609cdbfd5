package config

import (
	"testing"
	"time"
)

func TestTimeoutRelationships(t *testing.T) {
	if KakaoSkillProcessing >= 5*time.Second {
		t.Errorf("KakaoSkillProcessing (%v) must stay below the 5s skill deadline", KakaoSkillProcessing)
	}
	if HTTPWriteTimeout <= KakaoSkillProcessing {
		t.Errorf("HTTPWriteTimeout (%v) must leave room for a Kakao turn (%v)", HTTPWriteTimeout, KakaoSkillProcessing)
	}
	if HTTPIdleTimeout <= HTTPReadTimeout {
		t.Errorf("HTTPIdleTimeout (%v) should exceed HTTPReadTimeout (%v)", HTTPIdleTimeout, HTTPReadTimeout)
	}
	if TokenRefreshSkew <= 0 || TokenRefreshSkew >= time.Hour {
		t.Errorf("TokenRefreshSkew (%v) out of range", TokenRefreshSkew)
	}
}
