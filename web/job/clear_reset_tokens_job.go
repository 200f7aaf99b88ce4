package job

import (
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/service"
)

// ClearResetTokensJob drops reset token pairs whose expiry has passed.
type ClearResetTokensJob struct {
	authService *service.AuthService
}

func NewClearResetTokensJob(authService *service.AuthService) *ClearResetTokensJob {
	return &ClearResetTokensJob{authService: authService}
}

// Here Run is an interface method of the Job interface
func (j *ClearResetTokensJob) Run() {
	defer common.Recover("clear reset tokens job panicked")

	n, err := j.authService.ClearExpiredResetTokens()
	if err != nil {
		logger.Warning("clear reset tokens job err:", err)
		return
	}
	if n > 0 {
		logger.Infof("cleared %d expired password reset tokens", n)
	}
}
