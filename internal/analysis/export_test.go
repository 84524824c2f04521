package analysis

// FixtureResultJSON is a complete analysis document as the model would return it.
const FixtureResultJSON = `{
  "name": "Jane Doe",
  "email": "jane.doe@example.com",
  "phone": "+1 555 0100",
  "skills": ["Go", "Kubernetes", "PostgreSQL"],
  "experience": [
    {
      "title": "Senior Backend Engineer",
      "company": "Acme Corp",
      "duration": "Jan 2020 - Present",
      "description": "Led the migration of billing services to Go."
    }
  ],
  "education": [
    {"degree": "B.S. Computer Science", "institution": "State University", "year": "2015"}
  ],
  "strengths": ["Distributed systems"],
  "weaknesses": ["Few public talks"],
  "overallScore": 82,
  "atsAnalysis": {
    "atsScore": 78,
    "keywordMatch": 65,
    "formatScore": 90,
    "contentScore": 80,
    "matchedKeywords": ["Go", "Kubernetes"],
    "missingKeywords": ["Terraform"],
    "formatIssues": [{"issue": "Two-column layout", "severity": "medium"}],
    "contentIssues": [{"issue": "Metrics missing from older roles", "severity": "low"}]
  }
}`
