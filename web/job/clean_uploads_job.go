package job

import (
	"time"

	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/service"
)

// orphanMinAge keeps uploads whose post or profile save may still be running.
const orphanMinAge = time.Hour

// CleanUploadsJob removes uploaded images that no post or profile points to anymore.
type CleanUploadsJob struct {
	uploadService service.UploadService
}

func NewCleanUploadsJob() *CleanUploadsJob {
	return new(CleanUploadsJob)
}

func (j *CleanUploadsJob) Run() {
	defer common.Recover("clean uploads job panicked")

	n, err := j.uploadService.CleanOrphans(orphanMinAge)
	if err != nil {
		logger.Warning("clean uploads job err:", err)
		return
	}
	if n > 0 {
		logger.Infof("removed %d orphaned uploads", n)
	}
}
