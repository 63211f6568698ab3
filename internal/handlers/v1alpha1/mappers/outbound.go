package mappers

import (
	"time"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/internal/scheduler"
	"github.com/dataforge/dataset-pipeline/internal/service"
	"github.com/dataforge/dataset-pipeline/internal/store/model"
)

func JobToApi(job model.ProcessingJob) v1alpha1.Job {
	j := v1alpha1.Job{
		Id:                   job.ID,
		ProjectId:            job.ProjectID,
		DataSourceId:         job.DataSourceID,
		SchemaMappingId:      job.SchemaMappingID,
		Status:               v1alpha1.JobStatus(job.Status),
		CancelRequested:      job.CancelRequested,
		Progress:             job.Progress,
		Stage:                job.Stage,
		OutputFormat:         job.OutputFormat,
		OutputName:           job.OutputName,
		InputRecordCount:     job.InputRecordCount,
		ProcessedRecordCount: job.ProcessedRecordCount,
		OutputRecordCount:    job.OutputRecordCount,
		PiiDetectedCount:     job.PIIDetectedCount,
		FilteredOutCount:     job.FilteredOutCount,
		StartedAt:            job.StartedAt,
		CompletedAt:          job.CompletedAt,
		CreatedAt:            job.CreatedAt,
	}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		j.ErrorMessage = &msg
	}
	return j
}

// JobWithProgressToApi overlays the live counters of a running job.
func JobWithProgressToApi(job model.ProcessingJob, progress *scheduler.Progress) v1alpha1.Job {
	j := JobToApi(job)
	if progress == nil || !progress.Active {
		return j
	}
	j.Status = v1alpha1.JobStatus(progress.Status)
	j.Progress = progress.Progress
	j.Stage = progress.Stage
	j.InputRecordCount = progress.InputRecordCount
	j.ProcessedRecordCount = progress.ProcessedRecordCount
	j.OutputRecordCount = progress.OutputRecordCount
	j.PiiDetectedCount = progress.PIIDetectedCount
	j.FilteredOutCount = progress.FilteredOutCount
	return j
}

func JobListToApi(jobs model.ProcessingJobList) v1alpha1.JobList {
	list := make(v1alpha1.JobList, 0, len(jobs))
	for _, j := range jobs {
		list = append(list, JobToApi(j))
	}
	return list
}

func JobLogsToApi(jobID int64, lines []scheduler.LogLine) v1alpha1.JobLogs {
	out := v1alpha1.JobLogs{JobId: jobID, Lines: make([]v1alpha1.JobLogLine, 0, len(lines))}
	for _, l := range lines {
		out.Lines = append(out.Lines, v1alpha1.JobLogLine{Time: l.Time, Message: l.Message})
	}
	return out
}

func DataSourceToApi(source model.DataSource) v1alpha1.DataSource {
	return v1alpha1.DataSource{
		Id:        source.ID,
		ProjectId: source.ProjectID,
		Name:      source.Name,
		Format:    source.Format,
		Status:    v1alpha1.DataSourceStatus(source.Status),
		FileSize:  source.FileSize,
		CreatedAt: source.CreatedAt,
	}
}

func DataSourceListToApi(sources model.DataSourceList) v1alpha1.DataSourceList {
	list := make(v1alpha1.DataSourceList, 0, len(sources))
	for _, s := range sources {
		list = append(list, DataSourceToApi(s))
	}
	return list
}

func UploadTicketToApi(ticket service.UploadTicket) v1alpha1.DataSourceUpload {
	return v1alpha1.DataSourceUpload{
		DataSource: DataSourceToApi(*ticket.DataSource),
		UploadUrl:  ticket.UploadURL,
		ExpiresAt:  ticket.ExpiresAt,
	}
}

func SchemaMappingToApi(m model.SchemaMapping) v1alpha1.SchemaMapping {
	return v1alpha1.SchemaMapping{
		Id:        m.ID,
		ProjectId: m.ProjectID,
		Name:      m.Name,
		Config:    m.Config,
		CreatedAt: m.CreatedAt,
	}
}

func SchemaMappingListToApi(mappings model.SchemaMappingList) v1alpha1.SchemaMappingList {
	list := make(v1alpha1.SchemaMappingList, 0, len(mappings))
	for _, m := range mappings {
		list = append(list, SchemaMappingToApi(m))
	}
	return list
}

func DatasetToApi(d model.Dataset) v1alpha1.Dataset {
	return v1alpha1.Dataset{
		Id:           d.ID,
		ProjectId:    d.ProjectID,
		JobId:        d.JobID,
		DataSourceId: d.DataSourceID,
		Name:         d.Name,
		Format:       d.Format,
		RecordCount:  d.RecordCount,
		FileSize:     d.FileSize,
		ExpiresAt:    d.ExpiresAt,
		CreatedAt:    d.CreatedAt,
	}
}

func DatasetListToApi(datasets model.DatasetList) v1alpha1.DatasetList {
	list := make(v1alpha1.DatasetList, 0, len(datasets))
	for _, d := range datasets {
		list = append(list, DatasetToApi(d))
	}
	return list
}

func DownloadUrlToApi(url string, expiresAt time.Time) v1alpha1.DownloadUrl {
	return v1alpha1.DownloadUrl{Url: url, ExpiresAt: expiresAt}
}

func PreviewToApi(result service.PreviewResult) v1alpha1.PiiPreview {
	return v1alpha1.PiiPreview{
		HasPii:       result.HasPII,
		Matches:      result.Matches,
		RedactedText: result.RedactedText,
		Stats:        result.Stats,
	}
}
